package eod

import (
	"time"

	"quick-flip-scalper/internal/interfaces"
)

// NewSummarizer reads trades from src and writes summaries under root/eod.
// ShouldRunNow fires once the local time of day in loc passes after.
func NewSummarizer(src TradeSource, root string, loc *time.Location, after time.Duration) interfaces.EodSummarizer {
	return newSummarizer(src, root, loc, after, time.Now)
}

func newSummarizer(src TradeSource, root string, loc *time.Location, after time.Duration, now func() time.Time) *eodSummarizer {
	if loc == nil {
		loc = time.UTC
	}
	return &eodSummarizer{src: src, root: root, loc: loc, after: after, now: now}
}
