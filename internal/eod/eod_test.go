package eod

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quick-flip-scalper/internal/types"
)

type memSource map[string][]types.Trade

func (m memSource) ReadTrades(day time.Time) ([]types.Trade, error) {
	return m[day.Format("2006-01-02")], nil
}

var day = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func trade(sym string, kind types.PatternKind, hh, mm int, status types.TradeStatus, pnl float64) types.Trade {
	return types.Trade{
		ID: sym + string(kind), Symbol: sym, Pattern: kind, Direction: types.Long,
		EntryTime: day.Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute),
		Status:    status, PnL: pnl,
	}
}

func sample() []types.Trade {
	return []types.Trade{
		trade("AAPL", types.Hammer, 9, 50, types.StatusClosedWin, 1.5),
		trade("AAPL", types.InvertedHammer, 10, 5, types.StatusClosedLoss, -1.0),
		trade("MSFT", types.Hammer, 10, 20, types.StatusClosedWin, 3.0),
		trade("MSFT", types.BullishEngulfing, 10, 29, types.StatusClosedTimeout, -0.5),
		{Symbol: "NVDA", Status: types.StatusOpen},
	}
}

func TestComputeOverall(t *testing.T) {
	s := Compute(sample(), time.UTC).Overall
	assert.Equal(t, 4, s.Trades)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 1, s.Losses)
	assert.Equal(t, 1, s.Timeouts)
	assert.InDelta(t, 50.0, s.WinRate, 1e-9)
	assert.InDelta(t, 4.5, s.GrossProfit, 1e-9)
	assert.InDelta(t, 1.5, s.GrossLoss, 1e-9)
	assert.InDelta(t, 3.0, s.ProfitFactor, 1e-9)
	assert.InDelta(t, 2.25, s.AvgWin, 1e-9)
	assert.InDelta(t, 0.75, s.AvgLoss, 1e-9)
	assert.InDelta(t, 0.75, s.Expectancy, 1e-9)
}

func TestComputeBreakdowns(t *testing.T) {
	r := Compute(sample(), time.UTC)

	assert.Equal(t, 2, r.ByPattern["hammer"].Trades)
	assert.True(t, math.IsInf(r.ByPattern["hammer"].ProfitFactor, 1))
	assert.Equal(t, 0.0, r.ByPattern["inverted_hammer"].ProfitFactor)

	assert.Equal(t, 2, r.BySymbol["MSFT"].Trades)
	assert.InDelta(t, 2.5, r.BySymbol["MSFT"].NetPnL, 1e-9)

	assert.Equal(t, 1, r.ByBucket["09:45"].Trades)
	assert.Equal(t, 1, r.ByBucket["10:00"].Trades)
	assert.Equal(t, 2, r.ByBucket["10:15"].Trades)
	assert.NotContains(t, r.BySymbol, "NVDA")
}

func TestBucketOnDaylightSavingChange(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)
	assert.Equal(t, "10:15", bucket(time.Date(2025, 3, 30, 10, 20, 0, 0, london), london))
	assert.Equal(t, "09:45", bucket(time.Date(2025, 3, 10, 14, 50, 0, 0, time.UTC), newYorkZone(t)))
}

func newYorkZone(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func TestComputeEmpty(t *testing.T) {
	s := Compute(nil, nil).Overall
	assert.Zero(t, s.Trades)
	assert.Zero(t, s.ProfitFactor)
	assert.Zero(t, s.WinRate)
}

func TestSummarizeDayWritesCSVAndMarkdown(t *testing.T) {
	root := t.TempDir()
	s := newSummarizer(memSource{"2025-03-10": sample()}, root, time.UTC, 11*time.Hour, time.Now)

	p, err := s.SummarizeDay(day.Add(12 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "eod", "2025-03-10.csv"), p)

	f, err := os.Open(p)
	require.NoError(t, err)
	defer f.Close()
	var got []*summaryRow
	require.NoError(t, gocsv.UnmarshalFile(f, &got))
	require.NotEmpty(t, got)
	assert.Equal(t, "overall", got[0].Group)
	assert.Equal(t, 4, got[0].Trades)
	// overall + 3 patterns + 2 symbols + 3 buckets
	assert.Len(t, got, 9)

	md, err := os.ReadFile(filepath.Join(root, "eod", "2025-03-10.md"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(md), "| profit factor | 3.00 |"))
	assert.True(t, strings.Contains(string(md), "## By bucket"))
}

func TestSummarizeDayWithoutTrades(t *testing.T) {
	s := newSummarizer(memSource{}, t.TempDir(), time.UTC, 11*time.Hour, time.Now)
	p, err := s.SummarizeDay(day)
	require.NoError(t, err)
	assert.Empty(t, p)
}

func TestShouldRunNow(t *testing.T) {
	root := t.TempDir()
	clock := day.Add(10 * time.Hour)
	s := newSummarizer(memSource{"2025-03-10": sample()}, root, time.UTC, 11*time.Hour, func() time.Time { return clock })

	run, _ := s.ShouldRunNow()
	assert.False(t, run)

	clock = day.Add(12 * time.Hour)
	run, p := s.ShouldRunNow()
	assert.True(t, run)

	_, err := s.SummarizeToday()
	require.NoError(t, err)
	run, p2 := s.ShouldRunNow()
	assert.False(t, run)
	assert.Equal(t, p, p2)
}
