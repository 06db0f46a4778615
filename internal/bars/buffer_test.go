package bars

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quick-flip-scalper/internal/types"
)

var t0 = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

func bar(sym string, min int, c float64) types.Bar {
	return types.Bar{Symbol: sym, Timestamp: t0.Add(time.Duration(min) * time.Minute), Open: c, High: c + 1, Low: c - 1, Close: c}
}

func TestAppendEvictsBeyondLookback(t *testing.T) {
	b := NewBuffer(3)
	for i := 0; i < 5; i++ {
		require.NoError(t, b.Append(bar("X", i*5, float64(100+i))))
	}

	assert.Equal(t, 3, b.Len("X"))
	w, err := b.Window("X", 3)
	require.NoError(t, err)
	assert.Equal(t, 102.0, w[0].Close)
	assert.Equal(t, 104.0, w[2].Close)
}

func TestAppendRejectsDuplicateAndOutOfOrder(t *testing.T) {
	b := NewBuffer(5)
	require.NoError(t, b.Append(bar("X", 10, 100)))

	err := b.Append(bar("X", 10, 101))
	assert.True(t, errors.Is(err, ErrOutOfOrderBar), "duplicate timestamp must be rejected")

	err = b.Append(bar("X", 5, 99))
	assert.True(t, errors.Is(err, ErrOutOfOrderBar), "older timestamp must be rejected")

	assert.Equal(t, 1, b.Len("X"))
}

func TestOrderingIsPerSymbol(t *testing.T) {
	b := NewBuffer(5)
	require.NoError(t, b.Append(bar("X", 10, 100)))
	assert.NoError(t, b.Append(bar("Y", 5, 50)))
}

func TestWindowInsufficientHistory(t *testing.T) {
	b := NewBuffer(5)
	_, err := b.Window("X", 1)
	assert.ErrorIs(t, err, ErrInsufficientHistory)

	require.NoError(t, b.Append(bar("X", 0, 100)))
	_, err = b.Window("X", 2)
	assert.ErrorIs(t, err, ErrInsufficientHistory)

	w, err := b.Window("X", 1)
	require.NoError(t, err)
	assert.Len(t, w, 1)
}

func TestWindowReturnsCopy(t *testing.T) {
	b := NewBuffer(5)
	require.NoError(t, b.Append(bar("X", 0, 100)))
	w, _ := b.Window("X", 1)
	w[0].Close = 0

	again, _ := b.Window("X", 1)
	assert.Equal(t, 100.0, again[0].Close)
}

func TestReset(t *testing.T) {
	b := NewBuffer(5)
	require.NoError(t, b.Append(bar("X", 10, 100)))
	b.Reset("X")
	assert.Equal(t, 0, b.Len("X"))
	assert.NoError(t, b.Append(bar("X", 0, 100)))
}

func TestParallelSymbols(t *testing.T) {
	b := NewBuffer(4)
	var wg sync.WaitGroup
	for _, sym := range []string{"A", "B", "C", "D"} {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = b.Append(bar(sym, i, 100))
			}
		}(sym)
	}
	wg.Wait()

	for _, sym := range []string{"A", "B", "C", "D"} {
		assert.Equal(t, 4, b.Len(sym))
	}
}

func TestLast(t *testing.T) {
	b := NewBuffer(3)
	_, ok := b.Last("X")
	assert.False(t, ok)

	require.NoError(t, b.Append(bar("X", 0, 100)))
	require.NoError(t, b.Append(bar("X", 5, 101)))
	last, ok := b.Last("X")
	require.True(t, ok)
	assert.Equal(t, 101.0, last.Close)
}
