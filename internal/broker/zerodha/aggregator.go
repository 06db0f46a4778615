package zerodha

import (
	"sort"
	"sync"
	"time"

	"quick-flip-scalper/internal/types"
)

// partialBar is the bar being built for one symbol.
type partialBar struct {
	bar      types.Bar
	startVol float64 // cumulative day volume when the bar opened
	lastVol  float64
}

// barAggregator folds last-traded-price ticks into fixed interval bars. A bar
// is emitted once a tick of a later interval arrives or flush passes its end.
type barAggregator struct {
	interval time.Duration
	loc      *time.Location

	mu      sync.Mutex
	current map[string]*partialBar
	cumVol  map[string]float64 // last cumulative volume seen, kept across flushes
}

func newBarAggregator(interval time.Duration, loc *time.Location) *barAggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &barAggregator{interval: interval, loc: loc, current: make(map[string]*partialBar), cumVol: make(map[string]float64)}
}

// bucket returns the open time of the interval containing t, aligned to the
// local wall clock.
func (a *barAggregator) bucket(t time.Time) time.Time {
	lt := t.In(a.loc)
	wall := time.Duration(lt.Hour())*time.Hour + time.Duration(lt.Minute())*time.Minute + time.Duration(lt.Second())*time.Second
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, int(wall.Truncate(a.interval)/time.Second), 0, a.loc)
}

// add folds a tick in and returns the bar it completed, if any. cumVol is the
// exchange's cumulative traded volume for the day. Late ticks are dropped.
func (a *barAggregator) add(symbol string, at time.Time, price, cumVol float64) (types.Bar, bool) {
	start := a.bucket(at)

	a.mu.Lock()
	defer a.mu.Unlock()

	cur := a.current[symbol]
	switch {
	case cur == nil:
	case start.Before(cur.bar.Timestamp):
		return types.Bar{}, false
	case start.Equal(cur.bar.Timestamp):
		if price > cur.bar.High {
			cur.bar.High = price
		}
		if price < cur.bar.Low {
			cur.bar.Low = price
		}
		cur.bar.Close = price
		cur.lastVol = cumVol
		a.cumVol[symbol] = cumVol
		return types.Bar{}, false
	}

	var done types.Bar
	emitted := false
	if cur != nil {
		done, emitted = cur.finish(), true
	}
	startVol, seen := a.cumVol[symbol]
	if !seen || startVol > cumVol {
		startVol = cumVol
	}
	a.cumVol[symbol] = cumVol
	a.current[symbol] = &partialBar{
		bar:      types.Bar{Symbol: symbol, Timestamp: start, Open: price, High: price, Low: price, Close: price},
		startVol: startVol,
		lastVol:  cumVol,
	}
	return done, emitted
}

// flush emits every bar whose interval has ended by now, in symbol order.
func (a *barAggregator) flush(now time.Time) []types.Bar {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []types.Bar
	for sym, cur := range a.current {
		if !now.Before(cur.bar.Timestamp.Add(a.interval)) {
			out = append(out, cur.finish())
			delete(a.current, sym)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (p *partialBar) finish() types.Bar {
	b := p.bar
	if v := p.lastVol - p.startVol; v > 0 {
		b.Volume = v
	}
	return b
}
