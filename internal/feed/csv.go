// Package feed supplies bars to the engine from files and synthetic sources.
package feed

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"quick-flip-scalper/internal/interfaces"
	"quick-flip-scalper/internal/types"
)

// csvBar is one row of a bar file:
// symbol,timestamp,open,high,low,close,volume
type csvBar struct {
	Symbol    string  `csv:"symbol"`
	Timestamp string  `csv:"timestamp"`
	Open      float64 `csv:"open"`
	High      float64 `csv:"high"`
	Low       float64 `csv:"low"`
	Close     float64 `csv:"close"`
	Volume    float64 `csv:"volume"`
}

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02T15:04:05"}

// parseTime accepts RFC3339 or a zone-less local time interpreted in loc.
func parseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ReadCSV parses bars and returns them in timestamp order. Rows with the same
// timestamp keep their file order.
func ReadCSV(r io.Reader, loc *time.Location) ([]types.Bar, error) {
	if loc == nil {
		loc = time.UTC
	}
	var rows []*csvBar
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse bars: %w", err)
	}

	out := make([]types.Bar, 0, len(rows))
	for i, row := range rows {
		ts, err := parseTime(row.Timestamp, loc)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, types.Bar{
			Symbol:    strings.TrimSpace(row.Symbol),
			Timestamp: ts,
			Open:      row.Open,
			High:      row.High,
			Low:       row.Low,
			Close:     row.Close,
			Volume:    row.Volume,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// ReadCSVFile is ReadCSV on a file path.
func ReadCSVFile(path string, loc *time.Location) ([]types.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f, loc)
}

// WriteCSV writes bars in the format ReadCSV accepts.
func WriteCSV(w io.Writer, bs []types.Bar) error {
	rows := make([]*csvBar, 0, len(bs))
	for _, b := range bs {
		rows = append(rows, &csvBar{
			Symbol:    b.Symbol,
			Timestamp: b.Timestamp.Format(time.RFC3339),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		})
	}
	return gocsv.Marshal(rows, w)
}

// sliceFeed replays a fixed, ordered set of bars.
type sliceFeed struct {
	load   func() ([]types.Bar, error)
	cancel context.CancelFunc
}

var _ interfaces.Feed = (*sliceFeed)(nil)

// NewCSVFeed replays the bars of a CSV file.
func NewCSVFeed(path string, loc *time.Location) interfaces.Feed {
	return &sliceFeed{load: func() ([]types.Bar, error) { return ReadCSVFile(path, loc) }}
}

// NewSliceFeed replays bs, which must already be in timestamp order.
func NewSliceFeed(bs []types.Bar) interfaces.Feed {
	return &sliceFeed{load: func() ([]types.Bar, error) { return bs, nil }}
}

func (f *sliceFeed) Bars(ctx context.Context) (<-chan types.Bar, error) {
	bs, err := f.load()
	if err != nil {
		return nil, err
	}
	ctx, f.cancel = context.WithCancel(ctx)

	ch := make(chan types.Bar)
	go func() {
		defer close(ch)
		for _, b := range bs {
			select {
			case ch <- b:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (f *sliceFeed) Stop(context.Context) {
	if f.cancel != nil {
		f.cancel()
	}
}
