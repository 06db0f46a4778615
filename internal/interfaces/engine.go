package interfaces

import (
	"context"
	"time"

	"quick-flip-scalper/internal/types"
)

// Engine is the core entry point: one call per bar, bars of a symbol in
// timestamp order.
type Engine interface {
	OnBar(ctx context.Context, bar types.Bar) (*types.StepResult, error)
	Expire(ctx context.Context, now time.Time) []types.Trade
}
