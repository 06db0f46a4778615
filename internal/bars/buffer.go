package bars

import (
	"errors"
	"fmt"
	"sync"

	"quick-flip-scalper/internal/types"
)

var (
	// ErrOutOfOrderBar is returned when a bar is not strictly newer than the last stored bar.
	ErrOutOfOrderBar = errors.New("out of order bar")
	// ErrInsufficientHistory is recoverable: retry once more bars have arrived.
	ErrInsufficientHistory = errors.New("insufficient history")
)

// Buffer keeps the last lookback bars per symbol.
type Buffer struct {
	lookback int
	series   map[string]*series
	mu       sync.RWMutex
}

// series is owned by a single caller at a time; only the map above is shared.
type series struct {
	bars []types.Bar
}

func NewBuffer(lookback int) *Buffer {
	if lookback < 1 {
		lookback = 1
	}
	return &Buffer{
		lookback: lookback,
		series:   make(map[string]*series),
	}
}

func (b *Buffer) Lookback() int { return b.lookback }

func (b *Buffer) get(symbol string, create bool) *series {
	b.mu.RLock()
	s := b.series[symbol]
	b.mu.RUnlock()
	if s != nil || !create {
		return s
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if s = b.series[symbol]; s == nil {
		s = &series{bars: make([]types.Bar, 0, b.lookback+1)}
		b.series[symbol] = s
	}
	return s
}

// Append stores bar and evicts anything older than the lookback.
func (b *Buffer) Append(bar types.Bar) error {
	s := b.get(bar.Symbol, true)
	if n := len(s.bars); n > 0 {
		last := s.bars[n-1].Timestamp
		if !bar.Timestamp.After(last) {
			return fmt.Errorf("%w: %s at %s, last stored %s", ErrOutOfOrderBar, bar.Symbol,
				bar.Timestamp.Format("2006-01-02 15:04:05"), last.Format("2006-01-02 15:04:05"))
		}
	}

	s.bars = append(s.bars, bar)
	if len(s.bars) > b.lookback {
		s.bars = append(s.bars[:0], s.bars[len(s.bars)-b.lookback:]...)
	}
	return nil
}

// Window returns the last k bars in chronological order.
func (b *Buffer) Window(symbol string, k int) ([]types.Bar, error) {
	s := b.get(symbol, false)
	have := 0
	if s != nil {
		have = len(s.bars)
	}
	if k <= 0 || have < k {
		return nil, fmt.Errorf("%w: %s has %d bars, need %d", ErrInsufficientHistory, symbol, have, k)
	}

	out := make([]types.Bar, k)
	copy(out, s.bars[have-k:])
	return out, nil
}

// All returns every buffered bar for symbol, oldest first.
func (b *Buffer) All(symbol string) []types.Bar {
	s := b.get(symbol, false)
	if s == nil {
		return nil
	}
	out := make([]types.Bar, len(s.bars))
	copy(out, s.bars)
	return out
}

// Last returns the newest bar for symbol.
func (b *Buffer) Last(symbol string) (types.Bar, bool) {
	s := b.get(symbol, false)
	if s == nil || len(s.bars) == 0 {
		return types.Bar{}, false
	}
	return s.bars[len(s.bars)-1], true
}

func (b *Buffer) Len(symbol string) int {
	s := b.get(symbol, false)
	if s == nil {
		return 0
	}
	return len(s.bars)
}

// Reset drops the history of symbol, e.g. at a new trading day.
func (b *Buffer) Reset(symbol string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.series, symbol)
}
