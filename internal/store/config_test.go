package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, "DRY_RUN", c.Mode)
	assert.Equal(t, "America/New_York", c.Session.Timezone)
	assert.Equal(t, 1.5, c.Risk.TargetRangeMult)
	assert.Equal(t, 5, c.Buffer.Lookback)
}

func TestParseAppliesDefaultsAndOverrides(t *testing.T) {
	c, err := Parse([]byte(`
mode: LIVE
data_source: CSV
universe: [AAPL, MSFT]
session:
  start: "09:30"
  end: "10:30"
policy:
  disallowed: [TSLA]
  patterns: [hammer, inverted_hammer]
  max_trades_per_day: 1
volatility:
  method: wilder
  period: 4
  min_atr: 0.25
feed:
  csv_path: bars.csv
`))
	require.NoError(t, err)
	assert.Equal(t, "LIVE", c.Mode)
	assert.Equal(t, []string{"AAPL", "MSFT"}, c.Universe)
	assert.Equal(t, []string{"TSLA"}, c.Policy.Disallowed)
	assert.Equal(t, 1, c.Policy.MaxTradesPerDay)
	assert.Equal(t, 0.25, c.Volatility.MinATR)
	assert.Equal(t, 0.3, c.Pattern.MaxBodyRatio)
	assert.Equal(t, 5, c.Feed.IntervalMinutes)
}

func TestParseRejectsBadConfig(t *testing.T) {
	cases := map[string]string{
		"inverted session":                "session: {start: \"10:45\", end: \"09:45\"}",
		"empty session":                   "session: {start: \"10:00\", end: \"10:00\"}",
		"bad clock":                       "session: {start: \"9h45\"}",
		"bad timezone":                    "session: {timezone: Mars/Olympus}",
		"unknown pattern":                 "policy: {patterns: [doji]}",
		"negative cap":                    "policy: {max_trades_per_day: -1}",
		"bad method":                      "volatility: {method: ewma}",
		"bad mode":                        "mode: PAPER",
		"short lookback":                  "buffer: {lookback: 1}",
		"bad yaml":                        "session: [",
		"simple atr longer than lookback": "volatility: {method: SIMPLE, period: 6, min_atr: 0.01}\nbuffer: {lookback: 5}",
		"wilder atr needs an extra bar":   "volatility: {method: WILDER, period: 5, min_atr: 0.01}\nbuffer: {lookback: 5}",
		"negative opposite wick":          "pattern: {opposite_wick_ratio: -0.5}",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfiguration), "got %v", err)
		})
	}
}

func TestParseAcceptsATRPeriodThatFitsLookback(t *testing.T) {
	for _, doc := range []string{
		"volatility: {method: SIMPLE, period: 5, min_atr: 0.01}\nbuffer: {lookback: 5}",
		"volatility: {method: WILDER, period: 4, min_atr: 0.01}\nbuffer: {lookback: 5}",
		"volatility: {method: WILDER, period: 9}\nbuffer: {lookback: 5}",
	} {
		_, err := Parse([]byte(doc))
		assert.NoError(t, err, doc)
	}
}

func TestOppositeWickRatio(t *testing.T) {
	c, err := Parse([]byte("pattern: {opposite_wick_ratio: 0}"))
	require.NoError(t, err)
	require.NotNil(t, c.Pattern.OppositeWickRatio)
	assert.Equal(t, 0.0, *c.Pattern.OppositeWickRatio)

	c, err = Parse([]byte("mode: DRY_RUN"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, *c.Pattern.OppositeWickRatio)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("exchange: NASDAQ\n"), 0o644))

	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "NASDAQ", c.Exchange)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseClock(t *testing.T) {
	d, err := ParseClock("09:45")
	require.NoError(t, err)
	assert.Equal(t, 9*time.Hour+45*time.Minute, d)

	_, err = ParseClock("25:00")
	assert.Error(t, err)
}
