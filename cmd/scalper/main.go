package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quick-flip-scalper/internal/bars"
	"quick-flip-scalper/internal/logger"
	"quick-flip-scalper/internal/metrics"
	"quick-flip-scalper/internal/notify"
	"quick-flip-scalper/internal/trace"
)

const expireEvery = 30 * time.Second

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	must(initializeSystem())
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer func() { _ = trace.Shutdown(context.Background()) }()

	cfg, err := loadConfig(ctx)
	must(err)

	journal := initializeJournal(ctx, cfg)
	eng, err := initializeEngine(cfg)
	must(err)
	exec, err := initializeExecutor(ctx, cfg)
	must(err)
	summarizer, err := initializeEOD(cfg, journal)
	must(err)
	src, err := initializeFeed(ctx, cfg)
	must(err)
	tg, err := notify.FromEnv(ctx, cfg.Location())
	must(err)

	if cfg.Metrics.Addr != "" {
		srv := metrics.Serve(cfg.Metrics.Addr)
		defer srv.Close()
		logger.Info(ctx, "Metrics endpoint listening", "addr", cfg.Metrics.Addr)
	}

	barCh, err := src.Bars(ctx)
	must(err)
	defer src.Stop(context.Background())

	d := &dispatcher{sink: journal, exec: exec, journal: journal, notify: tg, qty: cfg.Risk.Quantity}
	live := cfg.DataSource == "LIVE"

	expire := time.NewTicker(expireEvery)
	defer expire.Stop()
	eodTick := time.NewTicker(60 * time.Second)
	defer eodTick.Stop()

	logger.Info(ctx, "Scalper started",
		"mode", cfg.Mode,
		"data_source", cfg.DataSource,
		"universe", cfg.Universe,
		"session", cfg.Session.Start+"-"+cfg.Session.End+" "+cfg.Session.Timezone,
	)

	var lastBar time.Time
	for {
		select {
		case bar, ok := <-barCh:
			if !ok {
				// replayed feeds end here; close whatever the data left open
				if !lastBar.IsZero() {
					d.expired(ctx, eng.Expire(ctx, lastBar.Add(24*time.Hour)))
				}
				summarize(ctx, summarizer.SummarizeDay, lastBar)
				logger.Info(ctx, "Bar feed exhausted, shutting down")
				return
			}
			res, err := eng.OnBar(ctx, bar)
			if err != nil {
				if !errors.Is(err, bars.ErrOutOfOrderBar) {
					logger.ErrorWithErr(ctx, "Bar step failed", err, "symbol", bar.Symbol)
				}
				continue
			}
			if bar.Timestamp.After(lastBar) {
				lastBar = bar.Timestamp
			}
			d.handle(ctx, res)

		case now := <-expire.C:
			if live {
				d.expired(ctx, eng.Expire(ctx, now))
			}

		case <-eodTick.C:
			if !live {
				continue
			}
			if ok, _ := summarizer.ShouldRunNow(); ok {
				_, _ = summarizer.SummarizeToday()
			}

		case <-ctx.Done():
			logger.Info(ctx, "Shutting down...")
			if live {
				d.expired(context.Background(), eng.Expire(context.Background(), time.Now()))
				_, _ = summarizer.SummarizeToday()
			}
			return
		}
	}
}

func summarize(ctx context.Context, fn func(time.Time) (string, error), day time.Time) {
	if day.IsZero() {
		return
	}
	if p, err := fn(day); err == nil && p != "" {
		logger.Info(ctx, "EOD CSV written", "path", p)
	}
}
