package engineobs

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"quick-flip-scalper/internal/interfaces"
	"quick-flip-scalper/internal/logger"
	"quick-flip-scalper/internal/trace"
	"quick-flip-scalper/internal/types"
)

type observableEngine struct {
	engine interfaces.Engine
}

var _ interfaces.Engine = (*observableEngine)(nil)

func Wrap(eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{
		engine: eng,
	}
}

func (oe *observableEngine) OnBar(ctx context.Context, bar types.Bar) (*types.StepResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.OnBar")
	defer span.End()
	span.SetAttributes(
		attribute.String("symbol", bar.Symbol),
		attribute.String("bar_time", bar.Timestamp.Format(time.RFC3339)),
	)

	start := time.Now()
	result, err := oe.engine.OnBar(ctx, bar)
	if err != nil {
		logger.ErrorWithErr(ctx, "Bar processing failed", err,
			"symbol", bar.Symbol,
			"bar_time", bar.Timestamp,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	if result.Opened != nil || result.Closed != nil {
		fields := []any{
			"symbol", bar.Symbol,
			"bar_time", bar.Timestamp,
			"signals", len(result.Signals),
			"discarded", len(result.Discarded),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if result.Opened != nil {
			fields = append(fields, "opened", result.Opened.ID)
		}
		if result.Closed != nil {
			fields = append(fields, "closed", result.Closed.ID, "status", string(result.Closed.Status), "pnl", result.Closed.PnL)
		}
		logger.Info(ctx, "Bar processed", fields...)
	} else {
		logger.Debug(ctx, "Bar processed",
			"symbol", bar.Symbol,
			"bar_time", bar.Timestamp,
			"signals", len(result.Signals),
			"discarded", len(result.Discarded),
		)
	}
	return result, nil
}

func (oe *observableEngine) Expire(ctx context.Context, now time.Time) []types.Trade {
	ctx, span := trace.StartSpan(ctx, "engine.Expire")
	defer span.End()

	closed := oe.engine.Expire(ctx, now)
	span.SetAttributes(attribute.Int("closed", len(closed)))
	if len(closed) > 0 {
		logger.Info(ctx, "Session timeout sweep closed trades", "count", len(closed), "now", now)
	}
	return closed
}
