// Package pattern classifies the newest bar of a window against the four
// quick-flip candlestick patterns. Classification is a pure function of bar
// geometry: the same bars always produce the same signals and strengths.
package pattern

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"quick-flip-scalper/internal/ta"
	"quick-flip-scalper/internal/types"
)

// ErrInvalidBarGeometry marks a bar with zero or negative range. Classification
// suppresses it rather than propagating it.
var ErrInvalidBarGeometry = errors.New("invalid bar geometry")

// Config holds the tunable thresholds. See Default for the tuned values.
type Config struct {
	MaxBodyRatio        float64 // body/range at or below which a bar counts as small-bodied
	WickRatio           float64 // long wick must be >= WickRatio*body
	OppositeWickRatio   float64 // short wick must be <= OppositeWickRatio*body
	WickStrengthScale   float64 // wick/body ratio that maps to strength 1.0
	EngulfStrengthScale float64 // body/prior body ratio that maps to strength 1.0
	ATRMethod           string  // SIMPLE or WILDER
	ATRPeriod           int
	MinATR              float64 // 0 disables the volatility gate
}

func Default() Config {
	return Config{
		MaxBodyRatio:        0.3,
		WickRatio:           2.0,
		OppositeWickRatio:   1.0,
		WickStrengthScale:   4.0,
		EngulfStrengthScale: 2.0,
		ATRMethod:           "SIMPLE",
		ATRPeriod:           3,
	}
}

// Geometry is the decomposition of a single candle.
type Geometry struct {
	Body, Range, LowerWick, UpperWick float64
}

// Measure decomposes b, failing on a zero or negative range.
func Measure(b types.Bar) (Geometry, error) {
	g := Geometry{
		Body:      b.Body(),
		Range:     b.Range(),
		LowerWick: math.Min(b.Open, b.Close) - b.Low,
		UpperWick: b.High - math.Max(b.Open, b.Close),
	}
	if !(g.Range > 0) {
		return g, fmt.Errorf("%w: %s range %.4f", ErrInvalidBarGeometry, b.Symbol, g.Range)
	}
	return g, nil
}

type Classifier struct {
	cfg Config
}

func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Volatility returns the ATR of the window under the configured method.
func (c *Classifier) Volatility(window []types.Bar) float64 {
	if strings.EqualFold(c.cfg.ATRMethod, "WILDER") {
		return ta.WilderATR(window, c.cfg.ATRPeriod)
	}
	return ta.ATR(window, c.cfg.ATRPeriod)
}

// Classify inspects the last bar of window (and the one before it for
// engulfing patterns). window is oldest first; earlier bars only feed the
// volatility gate. It returns nil when the gate fails or nothing qualifies.
func (c *Classifier) Classify(window []types.Bar) []types.PatternSignal {
	if len(window) == 0 {
		return nil
	}
	cur := window[len(window)-1]
	g, err := Measure(cur)
	if err != nil {
		return nil
	}
	if c.cfg.MinATR > 0 {
		// NaN fails this comparison too, so missing history fails closed.
		if atr := c.Volatility(window); !(atr >= c.cfg.MinATR) {
			return nil
		}
	}

	var out []types.PatternSignal
	emit := func(kind types.PatternKind, dir types.Direction, strength float64) {
		out = append(out, types.PatternSignal{
			Symbol:    cur.Symbol,
			Timestamp: cur.Timestamp,
			Kind:      kind,
			Direction: dir,
			Strength:  strength,
		})
	}

	if s, ok := c.hammer(g); ok {
		emit(types.Hammer, types.Long, s)
	}
	if s, ok := c.invertedHammer(g); ok {
		emit(types.InvertedHammer, types.Short, s)
	}
	if len(window) >= 2 {
		prev := window[len(window)-2]
		if s, ok := c.bullishEngulfing(cur, prev); ok {
			emit(types.BullishEngulfing, types.Long, s)
		}
		if s, ok := c.bearishEngulfing(cur, prev); ok {
			emit(types.BearishEngulfing, types.Short, s)
		}
	}
	return out
}

func (c *Classifier) smallBody(g Geometry) bool {
	return g.Body/g.Range <= c.cfg.MaxBodyRatio
}

func (c *Classifier) hammer(g Geometry) (float64, bool) {
	if !c.smallBody(g) {
		return 0, false
	}
	if g.LowerWick < c.cfg.WickRatio*g.Body || g.UpperWick > c.cfg.OppositeWickRatio*g.Body {
		return 0, false
	}
	return c.wickStrength(g.LowerWick, g.Body), true
}

func (c *Classifier) invertedHammer(g Geometry) (float64, bool) {
	if !c.smallBody(g) {
		return 0, false
	}
	if g.UpperWick < c.cfg.WickRatio*g.Body || g.LowerWick > c.cfg.OppositeWickRatio*g.Body {
		return 0, false
	}
	return c.wickStrength(g.UpperWick, g.Body), true
}

func (c *Classifier) wickStrength(wick, body float64) float64 {
	if body == 0 {
		return 1.0
	}
	return capUnit(wick / body / c.cfg.WickStrengthScale)
}

func (c *Classifier) bullishEngulfing(cur, prev types.Bar) (float64, bool) {
	if !prev.Bearish() || !cur.Bullish() {
		return 0, false
	}
	if cur.Open > prev.Close || cur.Close < prev.Open {
		return 0, false
	}
	return capUnit(cur.Body() / prev.Body() / c.cfg.EngulfStrengthScale), true
}

func (c *Classifier) bearishEngulfing(cur, prev types.Bar) (float64, bool) {
	if !prev.Bullish() || !cur.Bearish() {
		return 0, false
	}
	if cur.Open < prev.Close || cur.Close > prev.Open {
		return 0, false
	}
	return capUnit(cur.Body() / prev.Body() / c.cfg.EngulfStrengthScale), true
}

func capUnit(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < 0 {
		return 0
	}
	return x
}

// Best picks the strongest signal, breaking ties by pattern priority.
func Best(signals []types.PatternSignal) (types.PatternSignal, bool) {
	if len(signals) == 0 {
		return types.PatternSignal{}, false
	}
	best := signals[0]
	for _, s := range signals[1:] {
		if s.Strength > best.Strength ||
			(s.Strength == best.Strength && s.Kind.Priority() > best.Kind.Priority()) {
			best = s
		}
	}
	return best, true
}
