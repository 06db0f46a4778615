package interfaces

import (
	"context"

	"quick-flip-scalper/internal/types"
)

// Feed supplies bars in timestamp order per symbol. The channel is closed when
// the feed is exhausted or ctx is done.
type Feed interface {
	Bars(ctx context.Context) (<-chan types.Bar, error)
	Stop(ctx context.Context)
}

// Executor translates advisory entries and exits into broker orders.
type Executor interface {
	PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error)
}

// TradeSink receives every step result for journaling.
type TradeSink interface {
	Record(ctx context.Context, res *types.StepResult) error
}
