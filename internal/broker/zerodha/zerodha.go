package zerodha

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
	kiteticker "github.com/zerodha/gokiteconnect/v4/ticker"

	"quick-flip-scalper/internal/interfaces"
	"quick-flip-scalper/internal/types"
)

type Params struct {
	Mode        string // DRY_RUN or LIVE
	APIKey      string
	AccessToken string
	Exchange    string
}

// ErrMissingCredentials is returned when LIVE access is requested without a key or token.
var ErrMissingCredentials = errors.New("missing API key/access token")

// orderPlacer is the slice of the Kite client the executor uses.
type orderPlacer interface {
	PlaceOrder(variety string, params kiteconnect.OrderParams) (kiteconnect.OrderResponse, error)
}

// Executor turns advisory entries and exits into MIS market orders. In
// DRY_RUN mode orders are simulated and never leave the process.
type Executor struct {
	p   Params
	kc  orderPlacer
	seq atomic.Int64
}

var _ interfaces.Executor = (*Executor)(nil)

func NewExecutor(p Params) (*Executor, error) {
	e := &Executor{p: p}
	if p.Mode == "LIVE" {
		if p.APIKey == "" || p.AccessToken == "" {
			return nil, ErrMissingCredentials
		}
		kc := kiteconnect.New(p.APIKey)
		kc.SetAccessToken(p.AccessToken)
		e.kc = kc
	}
	return e, nil
}

func (e *Executor) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	if req.Qty <= 0 {
		return types.OrderResp{}, fmt.Errorf("invalid quantity %d for %s", req.Qty, req.Symbol)
	}
	side, err := transactionType(req.Side)
	if err != nil {
		return types.OrderResp{}, err
	}

	if e.p.Mode != "LIVE" {
		return types.OrderResp{
			OrderID: fmt.Sprintf("SIM-%d", e.seq.Add(1)),
			Status:  "SIMULATED",
			Message: "dry-run",
		}, nil
	}

	resp, err := e.kc.PlaceOrder(kiteconnect.VarietyRegular, kiteconnect.OrderParams{
		Exchange:        e.p.Exchange,
		Tradingsymbol:   req.Symbol,
		Validity:        kiteconnect.ValidityDay,
		Product:         kiteconnect.ProductMIS,
		OrderType:       kiteconnect.OrderTypeMarket,
		TransactionType: side,
		Quantity:        req.Qty,
		Tag:             req.Tag,
	})
	if err != nil {
		return types.OrderResp{}, fmt.Errorf("kite order for %s failed: %w", req.Symbol, err)
	}
	return types.OrderResp{OrderID: resp.OrderID, Status: "PLACED", Message: "ok"}, nil
}

func transactionType(side string) (string, error) {
	switch side {
	case "BUY":
		return kiteconnect.TransactionTypeBuy, nil
	case "SELL":
		return kiteconnect.TransactionTypeSell, nil
	}
	return "", fmt.Errorf("unknown order side %q", side)
}

// Feed streams bars built from Kite ticker ticks for the configured universe.
type Feed struct {
	p      Params
	mapper *instrumentMapper
	agg    *barAggregator
	ticker *kiteticker.Ticker

	mu     sync.Mutex
	out    chan types.Bar
	closed bool
	cancel context.CancelFunc
}

var _ interfaces.Feed = (*Feed)(nil)

const (
	barBuffer     = 256
	flushInterval = time.Second
)

func NewFeed(p Params, universe []string, tokens map[string]uint32, interval time.Duration, loc *time.Location) (*Feed, error) {
	if p.APIKey == "" || p.AccessToken == "" {
		return nil, ErrMissingCredentials
	}
	mapper, err := newInstrumentMapper(universe, tokens)
	if err != nil {
		return nil, err
	}
	return &Feed{p: p, mapper: mapper, agg: newBarAggregator(interval, loc)}, nil
}

// Bars connects the ticker and returns completed bars until ctx ends or Stop
// is called.
func (f *Feed) Bars(ctx context.Context) (<-chan types.Bar, error) {
	ctx, f.cancel = context.WithCancel(ctx)
	f.out = make(chan types.Bar, barBuffer)

	f.ticker = kiteticker.New(f.p.APIKey, f.p.AccessToken)
	f.setupEventHandlers()
	go f.ticker.Serve()

	go func() {
		t := time.NewTicker(flushInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				f.ticker.Stop()
				f.close()
				return
			case now := <-t.C:
				for _, b := range f.agg.flush(now) {
					f.emit(b)
				}
			}
		}
	}()
	return f.out, nil
}

func (f *Feed) Stop(context.Context) {
	if f.cancel != nil {
		f.cancel()
	}
}

// emit delivers b unless the feed has closed. A full buffer drops the bar
// rather than blocking the websocket reader.
func (f *Feed) emit(b types.Bar) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	select {
	case f.out <- b:
		return true
	default:
		return false
	}
}

func (f *Feed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.out)
	}
}
