// Command backtest replays a CSV of bars through the scalper engine and
// prints the session analytics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"quick-flip-scalper/internal/bars"
	"quick-flip-scalper/internal/engine"
	"quick-flip-scalper/internal/eod"
	"quick-flip-scalper/internal/feed"
	"quick-flip-scalper/internal/logger"
	"quick-flip-scalper/internal/store"
	"quick-flip-scalper/internal/tradelog"
	"quick-flip-scalper/internal/types"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config.yaml", "path to config.yaml")
	csvPath := flag.String("csv", "", "bar file to replay (defaults to feed.csv_path)")
	journalDir := flag.String("journal", "", "also write trades and discards under this directory")
	flag.Parse()

	if err := logger.Init(); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := run(context.Background(), *cfgPath, *csvPath, *journalDir); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfgPath, csvPath, journalDir string) error {
	cfg, err := store.LoadConfig(cfgPath)
	if err != nil {
		return err
	}
	if csvPath == "" {
		csvPath = cfg.Feed.CSVPath
	}
	if csvPath == "" {
		return errors.New("no bar file: pass -csv or set feed.csv_path")
	}

	bs, err := feed.ReadCSVFile(csvPath, cfg.Location())
	if err != nil {
		return err
	}
	trades, err := replay(ctx, cfg, bs, journalDir)
	if err != nil {
		return err
	}

	rep := eod.Compute(trades, cfg.Location())
	if len(bs) > 0 {
		rep.Day = bs[len(bs)-1].Timestamp.In(cfg.Location())
	}
	fmt.Print(eod.Markdown(rep))
	return nil
}

// replay drives bs through a fresh engine and returns every closed trade.
func replay(ctx context.Context, cfg *store.Config, bs []types.Bar, journalDir string) ([]types.Trade, error) {
	eng, err := engine.New(cfg)
	if err != nil {
		return nil, err
	}
	var journal *tradelog.Journal
	if journalDir != "" {
		journal = tradelog.New(journalDir, cfg.Location())
	}

	var (
		closed []types.Trade
		last   time.Time
	)
	record := func(res *types.StepResult) error {
		if res.Closed != nil {
			closed = append(closed, *res.Closed)
		}
		if journal != nil {
			return journal.Record(ctx, res)
		}
		return nil
	}

	for _, b := range bs {
		res, err := eng.OnBar(ctx, b)
		if errors.Is(err, bars.ErrOutOfOrderBar) {
			logger.Warn(ctx, "Skipping out of order bar", "symbol", b.Symbol, "timestamp", b.Timestamp)
			continue
		}
		if err != nil {
			return nil, err
		}
		if b.Timestamp.After(last) {
			last = b.Timestamp
		}
		if err := record(res); err != nil {
			return nil, err
		}
	}

	for _, t := range eng.Expire(ctx, last.Add(24*time.Hour)) {
		if err := record(&types.StepResult{Symbol: t.Symbol, Time: t.ExitTime, Closed: &t}); err != nil {
			return nil, err
		}
	}
	if journal != nil {
		fmt.Fprintf(os.Stderr, "journal written to %s\n", journal.Root())
	}
	return closed, nil
}
