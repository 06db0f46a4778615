package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quick-flip-scalper/internal/bars"
	"quick-flip-scalper/internal/session"
	"quick-flip-scalper/internal/store"
	"quick-flip-scalper/internal/types"
)

var ny = mustLoad("America/New_York")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func at(hh, mm int) time.Time {
	return time.Date(2025, 3, 10, hh, mm, 0, 0, ny)
}

func candle(sym string, ts time.Time, o, h, l, c float64) types.Bar {
	return types.Bar{Symbol: sym, Timestamp: ts, Open: o, High: h, Low: l, Close: c, Volume: 1000}
}

// filler is a wide-bodied bullish bar that forms no pattern on its own or
// against another filler.
func filler(sym string, ts time.Time) types.Bar {
	return candle(sym, ts, 100, 100.6, 99.9, 100.5)
}

// hammer: body 0.2, lower wick 1.0, upper wick 0.1, range 1.3.
func hammer(sym string, ts time.Time) types.Bar {
	return candle(sym, ts, 100, 100.3, 99.0, 100.2)
}

// invertedHammer: body 0.2, upper wick 1.0, lower wick 0.1, range 1.3.
func invertedHammer(sym string, ts time.Time) types.Bar {
	return candle(sym, ts, 100.2, 101.2, 99.9, 100)
}

func newTestEngine(t *testing.T, mutate func(*store.Config)) *Engine {
	t.Helper()
	cfg := store.Default()
	if mutate != nil {
		mutate(cfg)
	}
	e, err := newEngine(cfg)
	require.NoError(t, err)
	return e
}

func feed(t *testing.T, e *Engine, bs ...types.Bar) []*types.StepResult {
	t.Helper()
	out := make([]*types.StepResult, 0, len(bs))
	for _, b := range bs {
		res, err := e.OnBar(context.Background(), b)
		require.NoError(t, err)
		out = append(out, res)
	}
	return out
}

func hammerSequence(sym string, hh, mm int) []types.Bar {
	end := at(hh, mm)
	return []types.Bar{
		filler(sym, end.Add(-20*time.Minute)),
		filler(sym, end.Add(-15*time.Minute)),
		filler(sym, end.Add(-10*time.Minute)),
		filler(sym, end.Add(-5*time.Minute)),
		hammer(sym, end),
	}
}

func TestHammerInWindowOpensLongThenStopCloses(t *testing.T) {
	e := newTestEngine(t, nil)
	results := feed(t, e, hammerSequence("X", 10, 20)...)

	for _, r := range results[:4] {
		assert.Nil(t, r.Opened)
	}
	opened := results[4].Opened
	require.NotNil(t, opened)
	assert.Equal(t, types.Long, opened.Direction)
	assert.Equal(t, types.Hammer, opened.Pattern)
	assert.Equal(t, types.StatusOpen, opened.Status)
	assert.InDelta(t, 100.2, opened.EntryPrice, 1e-9)
	assert.InDelta(t, 98.9, opened.StopPrice, 1e-9)
	assert.InDelta(t, 102.15, opened.TargetPrice, 1e-9)

	res := feed(t, e, candle("X", at(10, 25), 100.2, 100.4, 98.5, 98.7))[0]
	require.NotNil(t, res.Closed)
	assert.Equal(t, types.StatusClosedLoss, res.Closed.Status)
	assert.InDelta(t, 98.9, res.Closed.ExitPrice, 1e-9)
	assert.Less(t, res.Closed.PnL, 0.0)
	assert.Equal(t, opened.ID, res.Closed.ID)

	_, open := e.OpenTrade("X")
	assert.False(t, open)
}

func TestHammerOutsideWindowOpensNothing(t *testing.T) {
	e := newTestEngine(t, nil)
	results := feed(t, e, hammerSequence("X", 11, 5)...)

	for _, r := range results {
		assert.Nil(t, r.Opened)
	}
	last := results[4]
	require.Len(t, last.Signals, 1)
	require.Len(t, last.Discarded, 1)
	assert.Equal(t, session.ReasonOutsideWindow, last.Discarded[0].Reason)
}

func TestEntryAtWindowEndIsRejected(t *testing.T) {
	e := newTestEngine(t, nil)
	results := feed(t, e, hammerSequence("X", 10, 45)...)
	assert.Nil(t, results[4].Opened)
}

func TestGapBarResolvesToStop(t *testing.T) {
	e := newTestEngine(t, nil)
	feed(t, e, hammerSequence("X", 10, 20)...)

	res := feed(t, e, candle("X", at(10, 25), 100.2, 103.0, 98.0, 101))[0]
	require.NotNil(t, res.Closed)
	assert.Equal(t, types.StatusClosedLoss, res.Closed.Status)
	assert.Less(t, res.Closed.PnL, 0.0)
}

func TestShortTargetIsAWin(t *testing.T) {
	e := newTestEngine(t, nil)
	seq := hammerSequence("Y", 10, 20)
	seq[4] = invertedHammer("Y", at(10, 20))
	results := feed(t, e, seq...)

	opened := results[4].Opened
	require.NotNil(t, opened)
	assert.Equal(t, types.Short, opened.Direction)
	assert.InDelta(t, 101.3, opened.StopPrice, 1e-9)
	assert.InDelta(t, 98.05, opened.TargetPrice, 1e-9)

	res := feed(t, e, candle("Y", at(10, 25), 100, 100.1, 98.0, 98.2))[0]
	require.NotNil(t, res.Closed)
	assert.Equal(t, types.StatusClosedWin, res.Closed.Status)
	assert.Greater(t, res.Closed.PnL, 0.0)
}

func TestTimeoutOnBarAtWindowEnd(t *testing.T) {
	e := newTestEngine(t, nil)
	feed(t, e, hammerSequence("X", 10, 20)...)
	feed(t, e,
		candle("X", at(10, 25), 100.2, 100.8, 99.5, 100.4),
		candle("X", at(10, 30), 100.4, 100.8, 99.5, 100.6),
	)

	res := feed(t, e, candle("X", at(10, 45), 100.6, 110, 90, 100))[0]
	require.NotNil(t, res.Closed)
	assert.Equal(t, types.StatusClosedTimeout, res.Closed.Status)
	assert.InDelta(t, 100.6, res.Closed.ExitPrice, 1e-9)
	assert.True(t, res.Closed.ExitTime.Equal(at(10, 45)))
	assert.InDelta(t, 0.4, res.Closed.PnL, 1e-9)
}

func TestExpireSweepsStaleTrades(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()
	feed(t, e, hammerSequence("X", 10, 20)...)

	assert.Empty(t, e.Expire(ctx, at(10, 44)))

	closed := e.Expire(ctx, at(10, 45))
	require.Len(t, closed, 1)
	assert.Equal(t, types.StatusClosedTimeout, closed[0].Status)
	assert.InDelta(t, 100.2, closed[0].ExitPrice, 1e-9)
	assert.Equal(t, 0.0, closed[0].PnL)

	assert.Empty(t, e.Expire(ctx, at(11, 0)))
}

func TestOneOpenTradePerSymbol(t *testing.T) {
	e := newTestEngine(t, nil)
	results := feed(t, e, hammerSequence("X", 10, 20)...)
	first := results[4].Opened
	require.NotNil(t, first)

	res := feed(t, e, hammer("X", at(10, 25)))[0]
	assert.Nil(t, res.Opened)
	assert.Nil(t, res.Closed)
	require.Len(t, res.Discarded, 1)
	assert.Equal(t, ReasonStateConflict, res.Discarded[0].Reason)

	open, ok := e.OpenTrade("X")
	require.True(t, ok)
	assert.Equal(t, first.ID, open.ID)
}

func TestClosingBarNeverOpens(t *testing.T) {
	e := newTestEngine(t, nil)
	feed(t, e, filler("X", at(10, 0)), hammer("X", at(10, 5)))

	// bearish engulfing of the hammer that also breaches its stop
	res := feed(t, e, candle("X", at(10, 10), 100.2, 100.4, 98.5, 98.7))[0]
	require.NotNil(t, res.Closed)
	assert.Nil(t, res.Opened)
	require.NotEmpty(t, res.Signals)
	for _, d := range res.Discarded {
		assert.Equal(t, ReasonStateConflict, d.Reason)
	}
}

func TestDailyCap(t *testing.T) {
	e := newTestEngine(t, func(c *store.Config) { c.Policy.MaxTradesPerDay = 1 })
	results := feed(t, e,
		filler("X", at(10, 0)),
		hammer("X", at(10, 5)),
		candle("X", at(10, 10), 100.2, 100.4, 98.5, 98.7),
		candle("X", at(10, 15), 99, 99.6, 98.9, 99.5),
		hammer("X", at(10, 20)),
	)
	require.NotNil(t, results[1].Opened)
	require.NotNil(t, results[2].Closed)

	last := results[4]
	assert.Nil(t, last.Opened)
	require.Len(t, last.Discarded, 1)
	assert.Equal(t, ReasonDailyCap, last.Discarded[0].Reason)
}

func TestDisallowedSymbol(t *testing.T) {
	e := newTestEngine(t, func(c *store.Config) { c.Policy.Disallowed = []string{"X"} })
	results := feed(t, e, hammerSequence("X", 10, 20)...)
	assert.Nil(t, results[4].Opened)
	require.Len(t, results[4].Discarded, 1)
	assert.Equal(t, session.ReasonSymbolDisallowed, results[4].Discarded[0].Reason)
}

func TestOutOfOrderBarIsRejected(t *testing.T) {
	e := newTestEngine(t, nil)
	feed(t, e, filler("X", at(10, 0)))

	_, err := e.OnBar(context.Background(), filler("X", at(10, 0)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, bars.ErrOutOfOrderBar))

	// other symbols are unaffected
	feed(t, e, filler("Y", at(9, 0)))
}

func TestNewDayResetsHistory(t *testing.T) {
	e := newTestEngine(t, nil)
	feed(t, e, hammerSequence("X", 10, 20)...)
	require.Equal(t, 5, e.buffer.Len("X"))

	res := feed(t, e, filler("X", at(10, 0).AddDate(0, 0, 1)))[0]
	assert.Equal(t, 1, e.buffer.Len("X"))
	require.NotNil(t, res.Closed)
	assert.Equal(t, types.StatusClosedTimeout, res.Closed.Status)
	assert.True(t, res.Closed.ExitTime.Equal(at(10, 45)))
}

func TestReplayIsDeterministic(t *testing.T) {
	run := func() []string {
		e := newTestEngine(t, nil)
		var ids []string
		for _, r := range feed(t, e, hammerSequence("X", 10, 20)...) {
			if r.Opened != nil {
				ids = append(ids, r.Opened.ID)
			}
		}
		return ids
	}
	a, b := run(), run()
	require.Len(t, a, 1)
	assert.Equal(t, a, b)
}

func TestPnLSignMatchesStatus(t *testing.T) {
	cases := []struct {
		name  string
		entry types.Bar
		exit  types.Bar
		want  types.TradeStatus
	}{
		{"long win", hammer("L", at(10, 20)), candle("L", at(10, 25), 100.2, 102.5, 100, 102), types.StatusClosedWin},
		{"long loss", hammer("L", at(10, 20)), candle("L", at(10, 25), 100.2, 100.3, 98, 98.2), types.StatusClosedLoss},
		{"short win", invertedHammer("S", at(10, 20)), candle("S", at(10, 25), 100, 100.1, 97.5, 97.8), types.StatusClosedWin},
		{"short loss", invertedHammer("S", at(10, 20)), candle("S", at(10, 25), 100, 102, 99.9, 101.8), types.StatusClosedLoss},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEngine(t, nil)
			results := feed(t, e, filler(tc.entry.Symbol, at(10, 15)), tc.entry, tc.exit)
			require.NotNil(t, results[1].Opened)
			closed := results[2].Closed
			require.NotNil(t, closed)
			assert.Equal(t, tc.want, closed.Status)
			if tc.want == types.StatusClosedWin {
				assert.Greater(t, closed.PnL, 0.0)
			} else {
				assert.Less(t, closed.PnL, 0.0)
			}
		})
	}
}

func TestNewRejectsBadSession(t *testing.T) {
	cfg := store.Default()
	cfg.Session.Start = "10:45"
	cfg.Session.End = "09:45"
	_, err := New(cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrConfiguration))
}
