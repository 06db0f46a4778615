package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BarsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "scalper_bars_total", Help: "Bars accepted by the engine"},
		[]string{"symbol"},
	)
	BarsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "scalper_bars_rejected_total", Help: "Bars rejected as out of order"},
		[]string{"symbol"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "scalper_signals_total", Help: "Pattern signals detected"},
		[]string{"symbol", "pattern"},
	)
	DiscardedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "scalper_discarded_signals_total", Help: "Signals dropped by policy or state"},
		[]string{"symbol", "reason"},
	)
	TradesOpened = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "scalper_trades_opened_total", Help: "Trades opened"},
		[]string{"symbol", "pattern", "direction"},
	)
	TradesClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "scalper_trades_closed_total", Help: "Trades closed by terminal status"},
		[]string{"symbol", "status"},
	)
	StateErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "scalper_state_errors_total", Help: "Corrupt state transitions absorbed in production builds"},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(BarsTotal, BarsRejected, SignalsTotal, DiscardedTotal, TradesOpened, TradesClosed, StateErrors)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
