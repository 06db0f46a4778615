package engine

import (
	"sync"
	"time"
)

// riskManager enforces the per-symbol daily entry cap.
type riskManager struct {
	maxPerDay int // 0 means unlimited
	loc       *time.Location

	mu     sync.Mutex
	counts map[string]dayCount
}

type dayCount struct {
	day   string
	count int
}

func newRiskManager(maxPerDay int, loc *time.Location) *riskManager {
	if loc == nil {
		loc = time.UTC
	}
	return &riskManager{maxPerDay: maxPerDay, loc: loc, counts: make(map[string]dayCount)}
}

func (rm *riskManager) dayKey(t time.Time) string {
	return t.In(rm.loc).Format("2006-01-02")
}

// allow reports whether symbol may take another entry on at's trading day.
func (rm *riskManager) allow(symbol string, at time.Time) bool {
	if rm.maxPerDay <= 0 {
		return true
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()

	dc := rm.counts[symbol]
	if dc.day != rm.dayKey(at) {
		return true
	}
	return dc.count < rm.maxPerDay
}

func (rm *riskManager) record(symbol string, at time.Time) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	day := rm.dayKey(at)
	dc := rm.counts[symbol]
	if dc.day != day {
		dc = dayCount{day: day}
	}
	dc.count++
	rm.counts[symbol] = dc
}
