package feed

import (
	"math"
	"math/rand"
	"time"

	"quick-flip-scalper/internal/interfaces"
	"quick-flip-scalper/internal/types"
)

// StaticParams shapes a synthetic trading day.
type StaticParams struct {
	Symbols  []string
	Day      time.Time // any time on the day; its location is the session timezone
	From, To time.Duration
	Interval time.Duration
	Seed     int64
}

// Synthesize builds a random-walk session for each symbol. The same params
// always produce the same bars. Roughly one bar in eight is shaped as a
// hammer or inverted hammer so dry runs exercise the full trade cycle.
func Synthesize(p StaticParams) []types.Bar {
	if p.Interval <= 0 {
		p.Interval = 5 * time.Minute
	}
	loc := p.Day.Location()
	rng := rand.New(rand.NewSource(p.Seed))

	price := make(map[string]float64, len(p.Symbols))
	for i, sym := range p.Symbols {
		price[sym] = 100 + float64(i)*25
	}

	var out []types.Bar
	for off := p.From; off < p.To; off += p.Interval {
		ts := time.Date(p.Day.Year(), p.Day.Month(), p.Day.Day(), 0, 0, int(off/time.Second), 0, loc)
		for _, sym := range p.Symbols {
			b := synthBar(rng, sym, ts, price[sym])
			price[sym] = b.Close
			out = append(out, b)
		}
	}
	return out
}

func synthBar(rng *rand.Rand, sym string, ts time.Time, last float64) types.Bar {
	step := last * 0.002
	open := roundCents(last + (rng.Float64()-0.5)*step)
	b := types.Bar{Symbol: sym, Timestamp: ts, Open: open, Volume: math.Round(1000 + rng.Float64()*9000)}

	switch rng.Intn(8) {
	case 0: // hammer
		body := step * 0.3
		b.Close = roundCents(open + body)
		b.High = roundCents(b.Close + body*0.5)
		b.Low = roundCents(open - body*3)
	case 1: // inverted hammer
		body := step * 0.3
		b.Close = roundCents(open - body)
		b.Low = roundCents(b.Close - body*0.5)
		b.High = roundCents(open + body*3)
	default:
		b.Close = roundCents(open + (rng.Float64()-0.5)*step*2)
		b.High = roundCents(math.Max(open, b.Close) + rng.Float64()*step)
		b.Low = roundCents(math.Min(open, b.Close) - rng.Float64()*step)
	}
	if b.High <= b.Low {
		b.High = b.Low + 0.01
	}
	return b
}

func roundCents(x float64) float64 { return math.Round(x*100) / 100 }

// NewStaticFeed replays a synthesized day.
func NewStaticFeed(p StaticParams) interfaces.Feed {
	return NewSliceFeed(Synthesize(p))
}
