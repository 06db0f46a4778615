package brokerobs

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"quick-flip-scalper/internal/interfaces"
	"quick-flip-scalper/internal/logger"
	"quick-flip-scalper/internal/trace"
	"quick-flip-scalper/internal/types"
)

// observableExecutor wraps an Executor with logging and tracing
type observableExecutor struct {
	exec interfaces.Executor
}

var _ interfaces.Executor = (*observableExecutor)(nil)

func WrapExecutor(exec interfaces.Executor) interfaces.Executor {
	return &observableExecutor{exec: exec}
}

func (oe *observableExecutor) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	ctx, span := trace.StartSpan(ctx, "broker.PlaceOrder")
	defer span.End()
	span.SetAttributes(
		attribute.String("symbol", req.Symbol),
		attribute.String("side", req.Side),
		attribute.Int("qty", req.Qty),
	)

	start := time.Now()
	resp, err := oe.exec.PlaceOrder(ctx, req)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to place order", err,
			"symbol", req.Symbol,
			"side", req.Side,
			"qty", req.Qty,
			"tag", req.Tag,
		)
		return resp, err
	}

	logger.Info(ctx, "Order placed",
		"symbol", req.Symbol,
		"side", req.Side,
		"qty", req.Qty,
		"ref_price", req.Price,
		"tag", req.Tag,
		"order_id", resp.OrderID,
		"status", resp.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}

// observableFeed logs feed lifecycle events
type observableFeed struct {
	feed interfaces.Feed
}

var _ interfaces.Feed = (*observableFeed)(nil)

func WrapFeed(feed interfaces.Feed) interfaces.Feed {
	return &observableFeed{feed: feed}
}

func (of *observableFeed) Bars(ctx context.Context) (<-chan types.Bar, error) {
	ctx, span := trace.StartSpan(ctx, "feed.Bars")
	defer span.End()

	ch, err := of.feed.Bars(ctx)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to start bar feed", err)
		return nil, err
	}
	logger.Info(ctx, "Bar feed started")
	return ch, nil
}

func (of *observableFeed) Stop(ctx context.Context) {
	logger.Info(ctx, "Stopping bar feed")
	of.feed.Stop(ctx)
}
