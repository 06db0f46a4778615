package session

import (
	"fmt"
	"time"

	"quick-flip-scalper/internal/types"
)

// Window is the daily entry window [Start, End) expressed as wall-clock
// times of day in Location.
type Window struct {
	Start    time.Duration
	End      time.Duration
	Location *time.Location
}

func NewWindow(start, end time.Duration, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.UTC
	}
	if start < 0 || end > 24*time.Hour || start >= end {
		return Window{}, fmt.Errorf("invalid session window %s-%s", start, end)
	}
	return Window{Start: start, End: end, Location: loc}, nil
}

// ClockOn returns the wall-clock time of day clock on t's local date in loc.
// It stays correct on days with a DST change.
func ClockOn(t time.Time, clock time.Duration, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, int(clock/time.Second), 0, loc)
}

// StartOn returns the window start on t's local trading day.
func (w Window) StartOn(t time.Time) time.Time { return ClockOn(t, w.Start, w.Location) }

// EndOn returns the window end on t's local trading day.
func (w Window) EndOn(t time.Time) time.Time { return ClockOn(t, w.End, w.Location) }

// Contains reports whether now is within [start, end) of its own day.
func (w Window) Contains(now time.Time) bool {
	return !now.Before(w.StartOn(now)) && now.Before(w.EndOn(now))
}

// SymbolPolicy is the per-symbol and per-pattern allow/deny configuration.
// Empty Allowed and empty Patterns mean "everything".
type SymbolPolicy struct {
	Allowed    map[string]struct{}
	Disallowed map[string]struct{}
	Patterns   map[types.PatternKind]struct{}
}

func NewSymbolPolicy(allowed, disallowed []string, patterns []types.PatternKind) SymbolPolicy {
	p := SymbolPolicy{
		Allowed:    make(map[string]struct{}, len(allowed)),
		Disallowed: make(map[string]struct{}, len(disallowed)),
		Patterns:   make(map[types.PatternKind]struct{}, len(patterns)),
	}
	for _, s := range allowed {
		p.Allowed[s] = struct{}{}
	}
	for _, s := range disallowed {
		p.Disallowed[s] = struct{}{}
	}
	for _, k := range patterns {
		p.Patterns[k] = struct{}{}
	}
	return p
}

// Rejection reasons, also used as metric labels.
const (
	ReasonOutsideWindow    = "outside_window"
	ReasonSymbolDisallowed = "symbol_disallowed"
	ReasonPatternFiltered  = "pattern_filtered"
)

// Policy gates entries. It has no state and is safe for concurrent use.
type Policy struct {
	window  Window
	symbols SymbolPolicy
}

func NewPolicy(w Window, sp SymbolPolicy) *Policy {
	return &Policy{window: w, symbols: sp}
}

func (p *Policy) Window() Window { return p.window }

// IsEligible reports whether an entry on symbol for kind is allowed at now.
func (p *Policy) IsEligible(now time.Time, symbol string, kind types.PatternKind) bool {
	return p.Check(now, symbol, kind) == ""
}

// Check is IsEligible with the first failing reason; "" means eligible.
func (p *Policy) Check(now time.Time, symbol string, kind types.PatternKind) string {
	if !p.window.Contains(now) {
		return ReasonOutsideWindow
	}
	if _, ok := p.symbols.Disallowed[symbol]; ok {
		return ReasonSymbolDisallowed
	}
	if len(p.symbols.Allowed) > 0 {
		if _, ok := p.symbols.Allowed[symbol]; !ok {
			return ReasonSymbolDisallowed
		}
	}
	if len(p.symbols.Patterns) > 0 {
		if _, ok := p.symbols.Patterns[kind]; !ok {
			return ReasonPatternFiltered
		}
	}
	return ""
}
