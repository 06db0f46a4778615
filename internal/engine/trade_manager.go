package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"quick-flip-scalper/internal/logger"
	"quick-flip-scalper/internal/metrics"
	"quick-flip-scalper/internal/pattern"
	"quick-flip-scalper/internal/session"
	"quick-flip-scalper/internal/types"
)

var (
	// ErrStateConflict is an entry attempt on a symbol that already has an open trade.
	ErrStateConflict = errors.New("state conflict")
	// ErrNoOpenTrade is a close of a trade that does not exist.
	ErrNoOpenTrade = errors.New("no open trade")
)

// Discard reasons beyond the session policy's.
const (
	ReasonStateConflict = "state_conflict"
	ReasonDailyCap      = "daily_cap"
	ReasonOutranked     = "outranked"
)

var tradeNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("quick-flip-scalper/trade"))

// slot is the per-symbol state: idle when open is nil.
type slot struct {
	open      *types.Trade
	lastClose float64   // close of the last bar seen while the trade was open
	lastTime  time.Time // timestamp of that bar
}

// TradeManager owns the open trade of every symbol and applies entry and exit
// rules. Each symbol's slot must be driven by one caller at a time; the map
// itself is safe for concurrent use across symbols.
type TradeManager struct {
	policy *session.Policy
	stops  *stopManager
	risk   *riskManager

	mu    sync.RWMutex
	slots map[string]*slot
}

func NewTradeManager(policy *session.Policy, stopMult, targetMult, minTick float64, maxPerDay int) *TradeManager {
	return &TradeManager{
		policy: policy,
		stops:  newStopManager(stopMult, targetMult, minTick),
		risk:   newRiskManager(maxPerDay, policy.Window().Location),
		slots:  make(map[string]*slot),
	}
}

func (tm *TradeManager) slot(symbol string) *slot {
	tm.mu.RLock()
	s := tm.slots[symbol]
	tm.mu.RUnlock()
	if s != nil {
		return s
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()
	if s = tm.slots[symbol]; s == nil {
		s = &slot{}
		tm.slots[symbol] = s
	}
	return s
}

// OpenTrade returns a copy of symbol's open trade.
func (tm *TradeManager) OpenTrade(symbol string) (types.Trade, bool) {
	s := tm.slot(symbol)
	if s.open == nil {
		return types.Trade{}, false
	}
	return *s.open, true
}

// IsOpen reports whether symbol currently holds an open trade.
func (tm *TradeManager) IsOpen(symbol string) bool {
	return tm.slot(symbol).open != nil
}

// Advance applies bar to symbol's open trade, if any, and returns the trade
// when it closed. A bar at or past the entry day's window end forces a
// timeout at the last in-window close; otherwise stop and target are checked
// on every bar after the entry bar.
func (tm *TradeManager) Advance(ctx context.Context, bar types.Bar) *types.Trade {
	s := tm.slot(bar.Symbol)
	t := s.open
	if t == nil || !bar.Timestamp.After(t.EntryTime) {
		return nil
	}

	if end := tm.policy.Window().EndOn(t.EntryTime); !bar.Timestamp.Before(end) {
		return tm.mustClose(ctx, bar.Symbol, types.StatusClosedTimeout, s.lastClose, end)
	}

	if !pricesValid(bar) {
		logger.Warn(ctx, "Ignoring malformed bar for exit check",
			"symbol", bar.Symbol, "timestamp", bar.Timestamp, "high", bar.High, "low", bar.Low)
		return nil
	}

	if status, price, hit := tm.stops.checkExit(t, bar); hit {
		return tm.mustClose(ctx, bar.Symbol, status, price, bar.Timestamp)
	}

	s.lastClose = bar.Close
	s.lastTime = bar.Timestamp
	return nil
}

// Expire force-closes every open trade whose session window has ended at now.
// Trades are returned in symbol order.
func (tm *TradeManager) Expire(ctx context.Context, now time.Time) []types.Trade {
	tm.mu.RLock()
	symbols := make([]string, 0, len(tm.slots))
	for sym, s := range tm.slots {
		if s.open != nil {
			symbols = append(symbols, sym)
		}
	}
	tm.mu.RUnlock()
	sort.Strings(symbols)

	var closed []types.Trade
	for _, sym := range symbols {
		s := tm.slot(sym)
		if s.open == nil {
			continue
		}
		end := tm.policy.Window().EndOn(s.open.EntryTime)
		if now.Before(end) {
			continue
		}
		if t := tm.mustClose(ctx, sym, types.StatusClosedTimeout, s.lastClose, end); t != nil {
			closed = append(closed, *t)
		}
	}
	return closed
}

// Enter evaluates the bar's signals for an entry. wasOpen is whether the
// symbol held a trade when the bar arrived; such bars never open a trade.
func (tm *TradeManager) Enter(ctx context.Context, bar types.Bar, signals []types.PatternSignal, wasOpen bool) (*types.Trade, []types.Discard) {
	var (
		eligible []types.PatternSignal
		discards []types.Discard
	)
	drop := func(sig types.PatternSignal, reason string) {
		discards = append(discards, types.Discard{Signal: sig, Reason: reason})
		metrics.DiscardedTotal.WithLabelValues(sig.Symbol, reason).Inc()
		logger.Risk(ctx, sig.Symbol, "SIGNAL_DISCARDED",
			"pattern", string(sig.Kind),
			"direction", string(sig.Direction),
			"strength", sig.Strength,
			"reason", reason,
			"bar_time", sig.Timestamp,
		)
	}

	for _, sig := range signals {
		if reason := tm.policy.Check(sig.Timestamp, sig.Symbol, sig.Kind); reason != "" {
			drop(sig, reason)
			continue
		}
		if wasOpen || tm.IsOpen(sig.Symbol) {
			drop(sig, ReasonStateConflict)
			continue
		}
		if !tm.risk.allow(sig.Symbol, sig.Timestamp) {
			drop(sig, ReasonDailyCap)
			continue
		}
		eligible = append(eligible, sig)
	}

	best, ok := pattern.Best(eligible)
	if !ok {
		return nil, discards
	}
	for _, sig := range eligible {
		if sig != best {
			drop(sig, ReasonOutranked)
		}
	}

	t, err := tm.Open(ctx, best, bar)
	if err != nil {
		drop(best, ReasonStateConflict)
		return nil, discards
	}
	return t, discards
}

// Open creates a trade for sig at bar's close. It fails with ErrStateConflict
// when the symbol already holds a trade.
func (tm *TradeManager) Open(ctx context.Context, sig types.PatternSignal, bar types.Bar) (*types.Trade, error) {
	s := tm.slot(bar.Symbol)
	if s.open != nil {
		return nil, fmt.Errorf("%w: %s already open since %s", ErrStateConflict, bar.Symbol, s.open.EntryTime.Format(time.RFC3339))
	}

	entry := bar.Close
	stop, target := tm.stops.levels(sig.Direction, entry, bar.Range())
	t := &types.Trade{
		ID:          tradeID(bar.Symbol, bar.Timestamp, sig.Kind),
		Symbol:      bar.Symbol,
		Pattern:     sig.Kind,
		Direction:   sig.Direction,
		Strength:    sig.Strength,
		EntryPrice:  entry,
		EntryTime:   bar.Timestamp,
		StopPrice:   stop,
		TargetPrice: target,
		Status:      types.StatusOpen,
	}
	s.open = t
	s.lastClose = entry
	s.lastTime = bar.Timestamp
	tm.risk.record(bar.Symbol, bar.Timestamp)

	metrics.TradesOpened.WithLabelValues(t.Symbol, string(t.Pattern), string(t.Direction)).Inc()
	logger.Trade(ctx, t.Symbol, "opened", string(t.Status), entry,
		"trade_id", t.ID,
		"pattern", string(t.Pattern),
		"direction", string(t.Direction),
		"strength", t.Strength,
		"stop_price", stop,
		"target_price", target,
	)

	cp := *t
	return &cp, nil
}

// Close moves symbol's open trade to a terminal status and frees the slot.
// The returned trade is a detached copy and is never mutated again.
func (tm *TradeManager) Close(ctx context.Context, symbol string, status types.TradeStatus, price float64, at time.Time) (*types.Trade, error) {
	s := tm.slot(symbol)
	if s.open == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoOpenTrade, symbol)
	}
	if !status.Closed() {
		return nil, fmt.Errorf("%w: %s cannot close with status %q", ErrStateConflict, symbol, status)
	}

	t := s.open
	t.Status = status
	t.ExitPrice = price
	t.ExitTime = at
	t.PnL = t.Direction.Sign() * (price - t.EntryPrice)
	s.open = nil

	metrics.TradesClosed.WithLabelValues(symbol, string(status)).Inc()
	logger.Trade(ctx, symbol, "closed", string(status), price,
		"trade_id", t.ID,
		"pattern", string(t.Pattern),
		"direction", string(t.Direction),
		"entry_price", t.EntryPrice,
		"pnl", t.PnL,
		"held", at.Sub(t.EntryTime).String(),
	)
	return t, nil
}

// mustClose closes a trade the manager believes is open. A failure here is a
// programming error: fatal in debug builds, logged and ignored otherwise.
func (tm *TradeManager) mustClose(ctx context.Context, symbol string, status types.TradeStatus, price float64, at time.Time) *types.Trade {
	t, err := tm.Close(ctx, symbol, status, price, at)
	if err != nil {
		if debugBuild {
			panic(err)
		}
		metrics.StateErrors.WithLabelValues(symbol).Inc()
		logger.ErrorWithErr(ctx, "Corrupt trade state", err, "symbol", symbol, "status", string(status))
		return nil
	}
	return t
}

func tradeID(symbol string, at time.Time, kind types.PatternKind) string {
	key := symbol + "|" + at.UTC().Format(time.RFC3339Nano) + "|" + string(kind)
	return uuid.NewSHA1(tradeNamespace, []byte(key)).String()
}

// pricesValid reports whether b is finite with open and close inside [low, high].
func pricesValid(b types.Bar) bool {
	for _, p := range []float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return false
		}
	}
	return b.Low <= math.Min(b.Open, b.Close) && b.High >= math.Max(b.Open, b.Close)
}
