package eod

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"quick-flip-scalper/internal/types"
)

// TradeSource yields the closed trades of a trading day.
type TradeSource interface {
	ReadTrades(day time.Time) ([]types.Trade, error)
}

type eodSummarizer struct {
	src   TradeSource
	root  string
	loc   *time.Location
	after time.Duration // offset from midnight after which ShouldRunNow fires
	now   func() time.Time
}

func (s *eodSummarizer) SummarizeDay(t time.Time) (string, error) {
	day := t.In(s.loc)
	trades, err := s.src.ReadTrades(day)
	if err != nil {
		return "", err
	}
	if len(trades) == 0 {
		return "", nil
	}

	rep := Compute(trades, s.loc)
	rep.Day = day

	csvPath := eodCSVPath(s.root, day)
	if err := writeCSV(csvPath, rep); err != nil {
		return "", err
	}
	if err := os.WriteFile(eodMarkdownPath(s.root, day), []byte(Markdown(rep)), 0o644); err != nil {
		return "", err
	}
	return csvPath, nil
}

func (s *eodSummarizer) SummarizeToday() (string, error) { return s.SummarizeDay(s.now()) }

func (s *eodSummarizer) ShouldRunNow() (bool, string) {
	now := s.now().In(s.loc)
	outPath := eodCSVPath(s.root, now)
	if now.After(runAfter(now, s.after)) {
		if _, err := os.Stat(outPath); errors.Is(err, os.ErrNotExist) {
			return true, outPath
		}
	}
	return false, outPath
}

func rows(rep Report) []*summaryRow {
	out := []*summaryRow{newRow("overall", "all", rep.Overall)}
	for _, k := range sortedKeys(rep.ByPattern) {
		out = append(out, newRow("pattern", k, rep.ByPattern[k]))
	}
	for _, k := range sortedKeys(rep.BySymbol) {
		out = append(out, newRow("symbol", k, rep.BySymbol[k]))
	}
	for _, k := range sortedKeys(rep.ByBucket) {
		out = append(out, newRow("bucket", k, rep.ByBucket[k]))
	}
	return out
}

func writeCSV(path string, rep Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gocsv.MarshalFile(rows(rep), f)
}

// Markdown renders rep as a set of tables.
func Markdown(rep Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Quick-flip summary %s\n\n", rep.Day.Format("2006-01-02"))

	o := rep.Overall
	fmt.Fprintf(&b, "| metric | value |\n|---|---|\n")
	fmt.Fprintf(&b, "| trades | %d |\n| wins | %d |\n| losses | %d |\n| timeouts | %d |\n", o.Trades, o.Wins, o.Losses, o.Timeouts)
	fmt.Fprintf(&b, "| win rate | %.1f%% |\n| profit factor | %s |\n", o.WinRate, pf(o.ProfitFactor))
	fmt.Fprintf(&b, "| net pnl | %.2f |\n| avg win | %.2f |\n| avg loss | %.2f |\n| expectancy | %.4f |\n", o.NetPnL, o.AvgWin, o.AvgLoss, o.Expectancy)

	section := func(title string, m map[string]Stats) {
		if len(m) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n## By %s\n\n| %s | trades | win rate | profit factor | net pnl |\n|---|---|---|---|---|\n", title, title)
		for _, k := range sortedKeys(m) {
			s := m[k]
			fmt.Fprintf(&b, "| %s | %d | %.1f%% | %s | %.2f |\n", k, s.Trades, s.WinRate, pf(s.ProfitFactor), s.NetPnL)
		}
	}
	section("pattern", rep.ByPattern)
	section("symbol", rep.BySymbol)
	section("bucket", rep.ByBucket)
	return b.String()
}

func pf(x float64) string {
	if math.IsInf(x, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", x)
}
