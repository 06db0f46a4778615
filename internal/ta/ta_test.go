package ta

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"quick-flip-scalper/internal/types"
)

func ohlc(o, h, l, c float64) types.Bar {
	return types.Bar{Open: o, High: h, Low: l, Close: c}
}

func TestTrueRangeUsesGapFromPreviousClose(t *testing.T) {
	prev := ohlc(100, 101, 99, 100)
	gapUp := ohlc(104, 105, 103, 104)

	assert.Equal(t, 2.0, TrueRange(gapUp, nil))
	assert.Equal(t, 5.0, TrueRange(gapUp, &prev))
}

func TestATRSimpleMean(t *testing.T) {
	bs := []types.Bar{
		ohlc(100, 102, 98, 100), // 4 (no prev)
		ohlc(100, 101, 99, 100), // 2
		ohlc(100, 103, 100, 102), // 3
	}
	assert.InDelta(t, 3.0, ATR(bs, 3), 1e-9)
	assert.InDelta(t, 2.5, ATR(bs, 2), 1e-9)
}

func TestATRInsufficient(t *testing.T) {
	assert.True(t, math.IsNaN(ATR(nil, 3)))
	assert.True(t, math.IsNaN(ATR([]types.Bar{ohlc(1, 2, 0, 1)}, 2)))
	assert.True(t, math.IsNaN(WilderATR([]types.Bar{ohlc(1, 2, 0, 1), ohlc(1, 2, 0, 1)}, 2)))
}

func TestWilderATRConstantRange(t *testing.T) {
	bs := make([]types.Bar, 6)
	for i := range bs {
		bs[i] = ohlc(100, 101, 99, 100)
	}
	assert.InDelta(t, 2.0, WilderATR(bs, 3), 1e-9)
}
