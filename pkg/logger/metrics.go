package logger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the ingestion and analytics pipeline.
// Registered via promauto and exposed on the health server's /metrics endpoint.

var (
	TicksIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticks_ingested_total",
			Help: "Total number of normalized ticks ingested",
		},
		[]string{"symbol"},
	)

	ParseErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tick_parse_errors_total",
			Help: "Total number of malformed or non-trade messages dropped",
		},
		[]string{"source"},
	)

	TicksDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticks_dropped_total",
			Help: "Total number of out-of-order ticks dropped by the resampler",
		},
		[]string{"symbol", "timeframe"},
	)

	BarsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bars_emitted_total",
			Help: "Total number of completed OHLCV bars",
		},
		[]string{"symbol", "timeframe"},
	)

	AlertsFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_fired_total",
			Help: "Total number of alerts emitted by the rule engine",
		},
		[]string{"severity"},
	)

	Reconnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_reconnects_total",
			Help: "Total number of websocket reconnection attempts",
		},
		[]string{"symbol"},
	)

	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors",
		},
		[]string{"service", "error_type"},
	)
)
