package ta

import (
	"math"

	talib "github.com/markcheno/go-talib"

	"quick-flip-scalper/internal/types"
)

// TrueRange of cur given the previous bar. A nil prev yields high-low.
func TrueRange(cur types.Bar, prev *types.Bar) float64 {
	tr := cur.High - cur.Low
	if prev == nil {
		return tr
	}
	return math.Max(tr, math.Max(math.Abs(cur.High-prev.Close), math.Abs(cur.Low-prev.Close)))
}

// ATR is the mean true range over the last period bars. The oldest bar in the
// slice has no previous close and contributes its high-low range.
func ATR(bs []types.Bar, period int) float64 {
	if period <= 0 || len(bs) < period {
		return math.NaN()
	}
	sum := 0.0
	for i := len(bs) - period; i < len(bs); i++ {
		var prev *types.Bar
		if i > 0 {
			prev = &bs[i-1]
		}
		sum += TrueRange(bs[i], prev)
	}
	return sum / float64(period)
}

// WilderATR is the smoothed ATR; it needs more than period bars.
func WilderATR(bs []types.Bar, period int) float64 {
	if period <= 0 || len(bs) <= period {
		return math.NaN()
	}
	h := make([]float64, len(bs))
	l := make([]float64, len(bs))
	c := make([]float64, len(bs))
	for i, b := range bs {
		h[i], l[i], c[i] = b.High, b.Low, b.Close
	}
	out := talib.Atr(h, l, c, period)
	if len(out) == 0 {
		return math.NaN()
	}
	return out[len(out)-1]
}
