package zerodha

import (
	"context"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
	"github.com/zerodha/gokiteconnect/v4/models"
	kiteticker "github.com/zerodha/gokiteconnect/v4/ticker"

	"quick-flip-scalper/internal/logger"
)

func (f *Feed) setupEventHandlers() {
	f.ticker.OnConnect(f.onConnect)
	f.ticker.OnError(f.onError)
	f.ticker.OnClose(f.onClose)
	f.ticker.OnReconnect(f.onReconnect)
	f.ticker.OnNoReconnect(f.onNoReconnect)
	f.ticker.OnTick(f.onTick)
	f.ticker.OnOrderUpdate(f.onOrderUpdate)
}

// onConnect (re)subscribes the universe; subscriptions do not survive a reconnect.
func (f *Feed) onConnect() {
	ctx := context.Background()
	tokens := f.mapper.getAllTokens()
	if err := f.ticker.Subscribe(tokens); err != nil {
		logger.ErrorWithErr(ctx, "Failed to subscribe instruments", err, "count", len(tokens))
		return
	}
	if err := f.ticker.SetMode(kiteticker.ModeFull, tokens); err != nil {
		logger.ErrorWithErr(ctx, "Failed to set ticker mode", err)
		return
	}
	logger.Info(ctx, "WebSocket connected", "instruments", len(tokens))
}

func (f *Feed) onError(err error) {
	logger.ErrorWithErr(context.Background(), "WebSocket error occurred", err)
}

func (f *Feed) onClose(code int, reason string) {
	logger.Warn(context.Background(), "WebSocket connection closed", "code", code, "reason", reason)
}

func (f *Feed) onReconnect(attempt int, delay time.Duration) {
	logger.Info(context.Background(), "WebSocket reconnecting", "attempt", attempt, "delay", delay)
}

func (f *Feed) onNoReconnect(attempt int) {
	logger.Warn(context.Background(), "WebSocket reconnection failed - giving up", "attempts", attempt)
	f.Stop(context.Background())
}

func (f *Feed) onTick(tick models.Tick) {
	symbol := f.mapper.getSymbol(tick.InstrumentToken)
	if symbol == "" {
		return
	}
	at := tick.Timestamp.Time
	if at.IsZero() {
		at = tick.LastTradeTime.Time
	}
	if at.IsZero() || tick.LastPrice <= 0 {
		return
	}

	if b, ok := f.agg.add(symbol, at, tick.LastPrice, float64(tick.VolumeTraded)); ok {
		if !f.emit(b) {
			logger.Warn(context.Background(), "Dropped bar, consumer is behind", "symbol", symbol, "bar_time", b.Timestamp)
		}
	}
}

func (f *Feed) onOrderUpdate(order kiteconnect.Order) {
	logger.Debug(context.Background(), "Order update received",
		"order_id", order.OrderID,
		"status", order.Status,
		"symbol", order.TradingSymbol,
	)
}
