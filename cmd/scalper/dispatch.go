package main

import (
	"context"
	"time"

	"quick-flip-scalper/internal/interfaces"
	"quick-flip-scalper/internal/logger"
	"quick-flip-scalper/internal/tradelog"
	"quick-flip-scalper/internal/types"
)

// dispatcher forwards engine output to the journal and the executor.
type dispatcher struct {
	sink    interfaces.TradeSink
	exec    interfaces.Executor
	journal *tradelog.Journal
	notify  notifier
	qty     int
}

type notifier interface {
	Opened(ctx context.Context, t types.Trade) error
}

func (d *dispatcher) handle(ctx context.Context, res *types.StepResult) {
	if res == nil {
		return
	}
	// exits first so a slot is flat at the broker before anything new opens
	if res.Closed != nil {
		d.order(ctx, *res.Closed, exitSide(res.Closed.Direction), res.Closed.ExitPrice, res.Closed.ExitTime, string(res.Closed.Status))
	}
	if res.Opened != nil {
		d.order(ctx, *res.Opened, entrySide(res.Opened.Direction), res.Opened.EntryPrice, res.Opened.EntryTime, "ENTRY_"+string(res.Opened.Pattern))
		if d.notify != nil {
			if err := d.notify.Opened(ctx, *res.Opened); err != nil {
				logger.Warn(ctx, "Trade notification failed", "symbol", res.Symbol, "error", err)
			}
		}
	}
	if err := d.sink.Record(ctx, res); err != nil {
		logger.ErrorWithErr(ctx, "Failed to journal step", err, "symbol", res.Symbol)
	}
}

// expired handles trades closed by the timeout sweep.
func (d *dispatcher) expired(ctx context.Context, closed []types.Trade) {
	for i := range closed {
		t := closed[i]
		d.handle(ctx, &types.StepResult{Symbol: t.Symbol, Time: t.ExitTime, Closed: &t})
	}
}

func (d *dispatcher) order(ctx context.Context, t types.Trade, side string, ref float64, at time.Time, reason string) {
	req := types.OrderReq{Symbol: t.Symbol, Side: side, Qty: d.qty, Price: ref, Tag: orderTag(t.ID)}
	resp, err := d.exec.PlaceOrder(ctx, req)
	if err != nil {
		logger.Risk(ctx, t.Symbol, "ORDER_FAILED", "trade_id", t.ID, "side", side, "error", err.Error())
		return
	}
	if d.journal == nil {
		return
	}
	if err := d.journal.AppendOrder(at, tradelog.Entry{
		Symbol:  t.Symbol,
		Side:    side,
		OrderID: resp.OrderID,
		Reason:  reason,
		Qty:     d.qty,
		Price:   ref,
		TradeID: t.ID,
	}); err != nil {
		logger.ErrorWithErr(ctx, "Failed to journal order", err, "symbol", t.Symbol, "order_id", resp.OrderID)
	}
}

func entrySide(d types.Direction) string {
	if d == types.Short {
		return "SELL"
	}
	return "BUY"
}

func exitSide(d types.Direction) string {
	if d == types.Short {
		return "BUY"
	}
	return "SELL"
}

// orderTag fits Kite's 20 character tag limit.
func orderTag(tradeID string) string {
	const prefix = "qf-"
	if len(tradeID) > 17 {
		tradeID = tradeID[:17]
	}
	return prefix + tradeID
}
