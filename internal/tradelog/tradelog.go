package tradelog

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"quick-flip-scalper/internal/interfaces"
	"quick-flip-scalper/internal/types"
)

// Entry is one order sent to the executor.
type Entry struct {
	Time, Symbol, Side, OrderID, Reason string
	Qty                                 int
	Price                               float64
	TradeID                             string         `json:"trade_id,omitempty"`
	Extra                               map[string]any `json:"extra,omitempty"`
}

// DiscardEntry is a signal dropped by policy or state.
type DiscardEntry struct {
	Time, Symbol, Pattern, Direction, Reason string
	Strength                                 float64
}

// Journal writes JSON lines under dir, one file per trading day and kind:
// trades/, discards/ and orders/. Days are keyed by event time in loc.
type Journal struct {
	dir string
	loc *time.Location
	mu  sync.Mutex
}

var _ interfaces.TradeSink = (*Journal)(nil)

// Dir resolves the journal root: TRADER_LOG_DIR, then fallback, then "logs".
func Dir(fallback string) string {
	if v := os.Getenv("TRADER_LOG_DIR"); v != "" {
		return v
	}
	if fallback != "" {
		return fallback
	}
	return "logs"
}

func New(dir string, loc *time.Location) *Journal {
	if loc == nil {
		loc = time.UTC
	}
	return &Journal{dir: dir, loc: loc}
}

func (j *Journal) Root() string { return j.dir }

func (j *Journal) path(kind string, t time.Time) string {
	return filepath.Join(j.dir, kind, t.In(j.loc).Format("2006-01-02")+".txt")
}

// TradesPath is the closed-trade journal for t's trading day.
func (j *Journal) TradesPath(t time.Time) string { return j.path("trades", t) }

// Record journals the closed trade and discarded signals of one step.
func (j *Journal) Record(_ context.Context, res *types.StepResult) error {
	if res == nil {
		return nil
	}
	var errs []error
	if res.Closed != nil {
		errs = append(errs, j.AppendTrade(*res.Closed))
	}
	for _, d := range res.Discarded {
		errs = append(errs, j.appendLine(j.path("discards", d.Signal.Timestamp), DiscardEntry{
			Time:      d.Signal.Timestamp.In(j.loc).Format("2006-01-02 15:04:05"),
			Symbol:    d.Signal.Symbol,
			Pattern:   string(d.Signal.Kind),
			Direction: string(d.Signal.Direction),
			Reason:    d.Reason,
			Strength:  d.Signal.Strength,
		}))
	}
	return errors.Join(errs...)
}

// AppendTrade journals a closed trade under its entry day.
func (j *Journal) AppendTrade(t types.Trade) error {
	if !t.Status.Closed() {
		return fmt.Errorf("trade %s is still %s", t.ID, t.Status)
	}
	return j.appendLine(j.TradesPath(t.EntryTime), t)
}

// AppendOrder journals an order at the given time.
func (j *Journal) AppendOrder(at time.Time, e Entry) error {
	e.Time = at.In(j.loc).Format("2006-01-02 15:04:05")
	return j.appendLine(j.path("orders", at), e)
}

func (j *Journal) appendLine(p string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// ReadTrades loads the closed trades journaled for day. A missing file is an
// empty day; a gzipped file left by CompressOlder is read transparently.
func (j *Journal) ReadTrades(day time.Time) ([]types.Trade, error) {
	p := j.TradesPath(day)
	var r io.Reader
	f, err := os.Open(p)
	switch {
	case err == nil:
		defer f.Close()
		r = f
	case errors.Is(err, os.ErrNotExist):
		gf, gerr := os.Open(p + ".gz")
		if errors.Is(gerr, os.ErrNotExist) {
			return nil, nil
		}
		if gerr != nil {
			return nil, gerr
		}
		defer gf.Close()
		gz, gerr := gzip.NewReader(gf)
		if gerr != nil {
			return nil, gerr
		}
		defer gz.Close()
		r = gz
	default:
		return nil, err
	}

	var out []types.Trade
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var t types.Trade
		if err := json.Unmarshal(sc.Bytes(), &t); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", p, line, err)
		}
		out = append(out, t)
	}
	return out, sc.Err()
}

// CompressOlder gzips journal files last modified more than retentionDays ago.
func (j *Journal) CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(j.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".txt" {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		gz := p + ".gz"
		if _, err := os.Stat(gz); err == nil {
			_ = os.Remove(p)
			return nil
		}
		if err := gzipFile(p, gz); err == nil {
			_ = os.Remove(p)
		}
		return nil
	})
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	_, err = io.Copy(gw, in)
	if cerr := gw.Close(); err == nil {
		err = cerr
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
	}
	return err
}
