package eod

import (
	"fmt"
	"math"
	"sort"
	"time"

	"quick-flip-scalper/internal/types"
)

// BucketSize groups entries by time of day.
const BucketSize = 15 * time.Minute

// Stats aggregates closed trades. ProfitFactor is +Inf when there are wins
// and no losses, 0 when there are no trades.
type Stats struct {
	Trades       int
	Wins         int
	Losses       int
	Timeouts     int
	WinRate      float64 // percent of all trades closed at target
	GrossProfit  float64
	GrossLoss    float64 // absolute
	NetPnL       float64
	ProfitFactor float64
	AvgWin       float64
	AvgLoss      float64 // absolute
	Expectancy   float64 // net pnl per trade
}

// Report is the day's analytics: overall and per pattern, symbol and
// 15-minute entry bucket.
type Report struct {
	Day       time.Time
	Overall   Stats
	ByPattern map[string]Stats
	BySymbol  map[string]Stats
	ByBucket  map[string]Stats
}

// Compute aggregates trades. Open trades are ignored. Buckets use loc.
func Compute(trades []types.Trade, loc *time.Location) Report {
	if loc == nil {
		loc = time.UTC
	}
	var (
		all       []types.Trade
		byPattern = map[string][]types.Trade{}
		bySymbol  = map[string][]types.Trade{}
		byBucket  = map[string][]types.Trade{}
	)
	for _, t := range trades {
		if !t.Status.Closed() {
			continue
		}
		all = append(all, t)
		byPattern[string(t.Pattern)] = append(byPattern[string(t.Pattern)], t)
		bySymbol[t.Symbol] = append(bySymbol[t.Symbol], t)
		b := bucket(t.EntryTime, loc)
		byBucket[b] = append(byBucket[b], t)
	}

	r := Report{
		Overall:   summarize(all),
		ByPattern: make(map[string]Stats, len(byPattern)),
		BySymbol:  make(map[string]Stats, len(bySymbol)),
		ByBucket:  make(map[string]Stats, len(byBucket)),
	}
	for k, ts := range byPattern {
		r.ByPattern[k] = summarize(ts)
	}
	for k, ts := range bySymbol {
		r.BySymbol[k] = summarize(ts)
	}
	for k, ts := range byBucket {
		r.ByBucket[k] = summarize(ts)
	}
	return r
}

func summarize(trades []types.Trade) Stats {
	var s Stats
	var nWin, nLoss int
	for _, t := range trades {
		s.Trades++
		switch t.Status {
		case types.StatusClosedWin:
			s.Wins++
		case types.StatusClosedLoss:
			s.Losses++
		case types.StatusClosedTimeout:
			s.Timeouts++
		}
		switch {
		case t.PnL > 0:
			s.GrossProfit += t.PnL
			nWin++
		case t.PnL < 0:
			s.GrossLoss -= t.PnL
			nLoss++
		}
		s.NetPnL += t.PnL
	}
	if s.Trades == 0 {
		return s
	}

	s.WinRate = float64(s.Wins) / float64(s.Trades) * 100
	s.Expectancy = s.NetPnL / float64(s.Trades)
	if nWin > 0 {
		s.AvgWin = s.GrossProfit / float64(nWin)
	}
	if nLoss > 0 {
		s.AvgLoss = s.GrossLoss / float64(nLoss)
	}
	switch {
	case s.GrossLoss > 0:
		s.ProfitFactor = s.GrossProfit / s.GrossLoss
	case s.GrossProfit > 0:
		s.ProfitFactor = math.Inf(1)
	}
	return s
}

// bucket labels t by the start of its 15-minute slot, e.g. "10:15".
func bucket(t time.Time, loc *time.Location) string {
	lt := t.In(loc)
	step := int(BucketSize / time.Minute)
	return fmt.Sprintf("%02d:%02d", lt.Hour(), lt.Minute()/step*step)
}

func sortedKeys(m map[string]Stats) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
