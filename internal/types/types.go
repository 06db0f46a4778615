package types

import "time"

// Bar is one OHLCV candle. Timestamp is the bar's open time.
type Bar struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Range returns high minus low.
func (b Bar) Range() float64 { return b.High - b.Low }

// Body returns the absolute distance between open and close.
func (b Bar) Body() float64 {
	if b.Close >= b.Open {
		return b.Close - b.Open
	}
	return b.Open - b.Close
}

func (b Bar) Bullish() bool { return b.Close > b.Open }
func (b Bar) Bearish() bool { return b.Close < b.Open }

type PatternKind string

const (
	Hammer           PatternKind = "hammer"
	InvertedHammer   PatternKind = "inverted_hammer"
	BullishEngulfing PatternKind = "bullish_engulfing"
	BearishEngulfing PatternKind = "bearish_engulfing"
)

// PatternKinds lists every kind in tie-break priority order, highest first.
var PatternKinds = []PatternKind{InvertedHammer, BearishEngulfing, BullishEngulfing, Hammer}

// Priority ranks kinds for equal-strength signals; higher wins.
func (k PatternKind) Priority() int {
	for i, p := range PatternKinds {
		if p == k {
			return len(PatternKinds) - i
		}
	}
	return 0
}

func (k PatternKind) Valid() bool { return k.Priority() > 0 }

type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// Sign is +1 for long and -1 for short.
func (d Direction) Sign() float64 {
	if d == Short {
		return -1
	}
	return 1
}

// PatternSignal is produced per bar by the classifier and consumed immediately.
type PatternSignal struct {
	Symbol    string      `json:"symbol"`
	Timestamp time.Time   `json:"timestamp"`
	Kind      PatternKind `json:"pattern"`
	Direction Direction   `json:"direction"`
	Strength  float64     `json:"strength"`
}

type TradeStatus string

const (
	StatusOpen          TradeStatus = "open"
	StatusClosedWin     TradeStatus = "closed_win"
	StatusClosedLoss    TradeStatus = "closed_loss"
	StatusClosedTimeout TradeStatus = "closed_timeout"
)

func (s TradeStatus) Closed() bool { return s != StatusOpen && s != "" }

// Trade is mutated only by the trade manager while open.
type Trade struct {
	ID          string      `json:"id"`
	Symbol      string      `json:"symbol"`
	Pattern     PatternKind `json:"pattern"`
	Direction   Direction   `json:"direction"`
	Strength    float64     `json:"strength"`
	EntryPrice  float64     `json:"entry_price"`
	EntryTime   time.Time   `json:"entry_time"`
	StopPrice   float64     `json:"stop_price"`
	TargetPrice float64     `json:"target_price"`
	Status      TradeStatus `json:"status"`
	ExitPrice   float64     `json:"exit_price,omitempty"`
	ExitTime    time.Time   `json:"exit_time,omitempty"`
	PnL         float64     `json:"pnl"`
}

// StepResult is what the engine hands to downstream collaborators after one bar.
type StepResult struct {
	Symbol    string          `json:"symbol"`
	Time      time.Time       `json:"time"`
	Signals   []PatternSignal `json:"signals,omitempty"`
	Opened    *Trade          `json:"opened,omitempty"`
	Closed    *Trade          `json:"closed,omitempty"`
	Discarded []Discard       `json:"discarded,omitempty"`
}

// Discard records a signal dropped by policy or state.
type Discard struct {
	Signal PatternSignal `json:"signal"`
	Reason string        `json:"reason"`
}

type OrderReq struct {
	Symbol, Side string
	Qty          int
	Price        float64
	Tag          string
}

type OrderResp struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}
