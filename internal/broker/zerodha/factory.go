package zerodha

import (
	"os"
	"time"

	"quick-flip-scalper/internal/interfaces"
	"quick-flip-scalper/internal/store"
)

// ParamsFromConfig reads credentials from KITE_API_KEY and KITE_ACCESS_TOKEN.
func ParamsFromConfig(cfg *store.Config) Params {
	return Params{
		Mode:        cfg.Mode,
		APIKey:      os.Getenv("KITE_API_KEY"),
		AccessToken: os.Getenv("KITE_ACCESS_TOKEN"),
		Exchange:    cfg.Exchange,
	}
}

func NewLiveFeed(cfg *store.Config) (interfaces.Feed, error) {
	interval := time.Duration(cfg.Feed.IntervalMinutes) * time.Minute
	return NewFeed(ParamsFromConfig(cfg), cfg.Universe, cfg.Feed.InstrumentTokens, interval, cfg.Location())
}

func NewOrderExecutor(cfg *store.Config) (interfaces.Executor, error) {
	return NewExecutor(ParamsFromConfig(cfg))
}
