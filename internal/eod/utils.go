package eod

import (
	"math"
	"path/filepath"
	"time"
)

func eodCSVPath(root string, t time.Time) string {
	return filepath.Join(root, "eod", t.Format("2006-01-02")+".csv")
}

func eodMarkdownPath(root string, t time.Time) string {
	return filepath.Join(root, "eod", t.Format("2006-01-02")+".md")
}

// runAfter is the earliest time on t's day the summary may be generated.
func runAfter(t time.Time, offset time.Duration) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, int(offset/time.Second), 0, t.Location())
}

func round(x float64, places int) float64 {
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return x
	}
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
