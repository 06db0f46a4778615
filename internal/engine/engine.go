package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"quick-flip-scalper/internal/bars"
	"quick-flip-scalper/internal/logger"
	"quick-flip-scalper/internal/metrics"
	"quick-flip-scalper/internal/pattern"
	"quick-flip-scalper/internal/session"
	"quick-flip-scalper/internal/store"
	"quick-flip-scalper/internal/types"
)

// Engine is the quick-flip scalper: buffer, classify, gate and manage trades,
// one bar at a time. It performs no I/O besides logging and metrics.
type Engine struct {
	loc        *time.Location
	buffer     *bars.Buffer
	classifier *pattern.Classifier
	policy     *session.Policy
	trades     *TradeManager
}

func newEngine(cfg *store.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc := cfg.Location()

	start, err := store.ParseClock(cfg.Session.Start)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrConfiguration, err)
	}
	end, err := store.ParseClock(cfg.Session.End)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrConfiguration, err)
	}
	window, err := session.NewWindow(start, end, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrConfiguration, err)
	}

	kinds := make([]types.PatternKind, 0, len(cfg.Policy.Patterns))
	for _, p := range cfg.Policy.Patterns {
		kinds = append(kinds, types.PatternKind(p))
	}
	policy := session.NewPolicy(window, session.NewSymbolPolicy(cfg.Policy.Allowed, cfg.Policy.Disallowed, kinds))

	classifier := pattern.NewClassifier(pattern.Config{
		MaxBodyRatio:        cfg.Pattern.MaxBodyRatio,
		WickRatio:           cfg.Pattern.WickRatio,
		OppositeWickRatio:   cfg.OppositeWick(),
		WickStrengthScale:   cfg.Pattern.WickStrengthScale,
		EngulfStrengthScale: cfg.Pattern.EngulfStrengthScale,
		ATRMethod:           strings.ToUpper(cfg.Volatility.Method),
		ATRPeriod:           cfg.Volatility.Period,
		MinATR:              cfg.Volatility.MinATR,
	})

	return &Engine{
		loc:        loc,
		buffer:     bars.NewBuffer(cfg.Buffer.Lookback),
		classifier: classifier,
		policy:     policy,
		trades: NewTradeManager(policy,
			cfg.Risk.StopRangeMult, cfg.Risk.TargetRangeMult, cfg.Risk.MinTick,
			cfg.Policy.MaxTradesPerDay),
	}, nil
}

// OnBar processes one bar. Only an out-of-order bar is an error; every other
// problem is absorbed and surfaced through the result, logs and metrics.
func (e *Engine) OnBar(ctx context.Context, bar types.Bar) (*types.StepResult, error) {
	sym := bar.Symbol

	if last, ok := e.buffer.Last(sym); ok && bar.Timestamp.After(last.Timestamp) && !e.sameDay(last.Timestamp, bar.Timestamp) {
		logger.Debug(ctx, "New trading day, resetting bar history", "symbol", sym, "previous", last.Timestamp)
		e.buffer.Reset(sym)
	}
	if err := e.buffer.Append(bar); err != nil {
		metrics.BarsRejected.WithLabelValues(sym).Inc()
		if errors.Is(err, bars.ErrOutOfOrderBar) {
			logger.Warn(ctx, "Rejected out of order bar", "symbol", sym, "timestamp", bar.Timestamp, "error", err.Error())
		}
		return nil, err
	}
	metrics.BarsTotal.WithLabelValues(sym).Inc()

	res := &types.StepResult{Symbol: sym, Time: bar.Timestamp}

	wasOpen := e.trades.IsOpen(sym)
	if closed := e.trades.Advance(ctx, bar); closed != nil {
		res.Closed = closed
	}

	res.Signals = e.classifier.Classify(e.buffer.All(sym))
	for _, sig := range res.Signals {
		metrics.SignalsTotal.WithLabelValues(sym, string(sig.Kind)).Inc()
		logger.Signal(ctx, sym, string(sig.Kind), string(sig.Direction), sig.Strength, "bar_time", sig.Timestamp)
	}
	if len(res.Signals) == 0 {
		return res, nil
	}

	res.Opened, res.Discarded = e.trades.Enter(ctx, bar, res.Signals, wasOpen)
	return res, nil
}

// Expire force-closes trades whose session window has ended at now.
func (e *Engine) Expire(ctx context.Context, now time.Time) []types.Trade {
	return e.trades.Expire(ctx, now)
}

// OpenTrade returns a copy of symbol's open trade, if any.
func (e *Engine) OpenTrade(symbol string) (types.Trade, bool) {
	return e.trades.OpenTrade(symbol)
}

func (e *Engine) sameDay(a, b time.Time) bool {
	ay, am, ad := a.In(e.loc).Date()
	by, bm, bd := b.In(e.loc).Date()
	return ay == by && am == bm && ad == bd
}
