package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics держит свой реестр, чтобы тесты не делили глобальный.
type Metrics struct {
	Registry *prometheus.Registry

	Ticks            *prometheus.CounterVec
	TicksDropped     *prometheus.CounterVec
	Candles          *prometheus.CounterVec
	FinalizeFailures *prometheus.CounterVec
	Signals          *prometheus.CounterVec
	SignalsIgnored   *prometheus.CounterVec
	Orders           *prometheus.CounterVec
	WSReconnects     prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Ticks: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "ticks_total", Help: "Count of market ticks ingested"},
			[]string{"symbol"},
		),
		TicksDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "ticks_dropped_total", Help: "Ticks dropped before aggregation"},
			[]string{"symbol", "reason"},
		),
		Candles: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "daily_candles_finalized_total", Help: "Daily candles finalized from live ticks"},
			[]string{"symbol"},
		),
		FinalizeFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "finalize_failures_total", Help: "Finalize/detect/act sequences aborted"},
			[]string{"symbol"},
		),
		Signals: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "signals_total", Help: "Crossover signals emitted"},
			[]string{"symbol", "side"},
		),
		SignalsIgnored: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "signals_ignored_total", Help: "Signals contradicting the current position"},
			[]string{"symbol", "side"},
		),
		Orders: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "orders_total", Help: "Simulated orders recorded"},
			[]string{"symbol", "side"},
		),
		WSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "ws_reconnects_total", Help: "Tick source reconnect attempts"},
		),
	}
	m.Registry.MustRegister(
		m.Ticks, m.TicksDropped, m.Candles, m.FinalizeFailures,
		m.Signals, m.SignalsIgnored, m.Orders, m.WSReconnects,
	)
	return m
}
