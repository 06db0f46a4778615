package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quick-flip-scalper/internal/feed"
	"quick-flip-scalper/internal/store"
	"quick-flip-scalper/internal/types"
)

func TestReplayIsReproducible(t *testing.T) {
	cfg := store.Default()
	cfg.Universe = []string{"AAPL", "MSFT", "NVDA"}
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, cfg.Location())
	bs := feed.Synthesize(feed.StaticParams{
		Symbols:  cfg.Universe,
		Day:      day,
		From:     9 * time.Hour,
		To:       11*time.Hour + 30*time.Minute,
		Interval: 5 * time.Minute,
		Seed:     3,
	})

	a, err := replay(context.Background(), cfg, bs, "")
	require.NoError(t, err)
	b, err := replay(context.Background(), cfg, bs, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, a, b)

	end := day.Add(10*time.Hour + 45*time.Minute)
	for _, tr := range a {
		assert.True(t, tr.Status.Closed())
		assert.False(t, tr.ExitTime.After(end), "trade %s exits after the window", tr.ID)
		switch tr.Status {
		case types.StatusClosedWin:
			assert.Greater(t, tr.PnL, 0.0)
		case types.StatusClosedLoss:
			assert.Less(t, tr.PnL, 0.0)
		}
	}
}
