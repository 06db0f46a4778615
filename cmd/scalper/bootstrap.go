package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"quick-flip-scalper/internal/broker/brokerobs"
	"quick-flip-scalper/internal/broker/zerodha"
	"quick-flip-scalper/internal/engine"
	"quick-flip-scalper/internal/engine/engineobs"
	"quick-flip-scalper/internal/eod"
	"quick-flip-scalper/internal/eod/eodobs"
	"quick-flip-scalper/internal/feed"
	"quick-flip-scalper/internal/interfaces"
	"quick-flip-scalper/internal/logger"
	"quick-flip-scalper/internal/store"
	"quick-flip-scalper/internal/trace"
	"quick-flip-scalper/internal/tradelog"
)

// initializeSystem initializes environment, logger and tracer
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

func configPath() string {
	if v := os.Getenv("SCALPER_CONFIG"); v != "" {
		return v
	}
	return "config.yaml"
}

func loadConfig(ctx context.Context) (*store.Config, error) {
	cfg, err := store.LoadConfig(configPath())
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", configPath())
		return nil, err
	}
	return cfg, nil
}

func initializeJournal(ctx context.Context, cfg *store.Config) *tradelog.Journal {
	j := tradelog.New(tradelog.Dir(cfg.Log.Dir), cfg.Location())
	if err := j.CompressOlder(cfg.Log.RetentionDays); err != nil {
		logger.Warn(ctx, "Failed to compress old logs", "error", err)
	}
	return j
}

// initializeFeed picks the bar source for cfg.DataSource
func initializeFeed(ctx context.Context, cfg *store.Config) (interfaces.Feed, error) {
	var (
		f   interfaces.Feed
		err error
	)
	switch cfg.DataSource {
	case "LIVE":
		logger.Info(ctx, "Using LIVE bars aggregated from Zerodha ticks", "interval_min", cfg.Feed.IntervalMinutes)
		f, err = zerodha.NewLiveFeed(cfg)
	case "CSV":
		logger.Info(ctx, "Replaying bars from CSV", "path", cfg.Feed.CSVPath)
		f = feed.NewCSVFeed(cfg.Feed.CSVPath, cfg.Location())
	default:
		logger.Info(ctx, "Using STATIC synthetic bars for testing", "seed", cfg.Feed.Seed)
		f, err = staticFeed(cfg)
	}
	if err != nil {
		return nil, err
	}
	return brokerobs.WrapFeed(f), nil
}

// staticFeed synthesizes today's session with half an hour of margin on
// either side of the window.
func staticFeed(cfg *store.Config) (interfaces.Feed, error) {
	start, err := store.ParseClock(cfg.Session.Start)
	if err != nil {
		return nil, err
	}
	end, err := store.ParseClock(cfg.Session.End)
	if err != nil {
		return nil, err
	}
	return feed.NewStaticFeed(feed.StaticParams{
		Symbols:  cfg.Universe,
		Day:      time.Now().In(cfg.Location()),
		From:     start - 30*time.Minute,
		To:       end + 30*time.Minute,
		Interval: time.Duration(cfg.Feed.IntervalMinutes) * time.Minute,
		Seed:     cfg.Feed.Seed,
	}), nil
}

func initializeExecutor(ctx context.Context, cfg *store.Config) (interfaces.Executor, error) {
	exec, err := zerodha.NewOrderExecutor(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Mode == "DRY_RUN" {
		logger.Warn(ctx, "Running in DRY_RUN mode - orders will be simulated")
	}
	return brokerobs.WrapExecutor(exec), nil
}

func initializeEngine(cfg *store.Config) (interfaces.Engine, error) {
	eng, err := engine.New(cfg)
	if err != nil {
		return nil, err
	}
	return engineobs.Wrap(eng), nil
}

// initializeEOD builds the summarizer; it runs half an hour after the session ends.
func initializeEOD(cfg *store.Config, j *tradelog.Journal) (interfaces.EodSummarizer, error) {
	end, err := store.ParseClock(cfg.Session.End)
	if err != nil {
		return nil, err
	}
	return eodobs.Wrap(eod.NewSummarizer(j, j.Root(), cfg.Location(), end+30*time.Minute)), nil
}
