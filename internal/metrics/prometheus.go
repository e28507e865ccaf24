// Package metrics exposes the Prometheus instrumentation shared across the
// API, the prediction pipeline and the monitoring path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts HTTP requests by method, endpoint and status.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration tracks HTTP request latency.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// SimulationsTotal counts batch yield simulations by outcome.
	SimulationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simulations_total",
			Help: "Total number of yield simulations run",
		},
		[]string{"status"},
	)

	// SimulationDuration tracks end-to-end batch simulation latency,
	// including the weather fetch.
	SimulationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "simulation_duration_seconds",
			Help:    "Yield simulation duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	// TelemetryReceived counts ingested telemetry samples.
	TelemetryReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "telemetry_samples_received_total",
			Help: "Total number of telemetry samples received",
		},
	)

	// AlertsCreated counts performance alerts by severity.
	AlertsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "performance_alerts_created_total",
			Help: "Total number of performance alerts created",
		},
		[]string{"severity"},
	)

	// AnalysisLatency tracks monitoring analysis latency.
	AnalysisLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analysis_latency_seconds",
			Help:    "Performance analysis latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// CurrentDeviation reports the latest deviation percentage per farm.
	CurrentDeviation = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "farm_deviation_percent",
			Help: "Latest performance deviation percentage per farm",
		},
		[]string{"farm_id"},
	)

	// ActiveFarms reports the number of registered active farms.
	ActiveFarms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_farms",
			Help: "Number of registered active solar farms",
		},
	)

	// WeatherFetches counts PVGIS requests by outcome (fetched, cached,
	// failed).
	WeatherFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_fetches_total",
			Help: "Total number of TMY weather retrievals",
		},
		[]string{"source"},
	)

	// TelemetryBufferSize reports the batch writer's current buffer depth.
	TelemetryBufferSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "telemetry_buffer_size",
			Help: "Current size of the telemetry write buffer",
		},
	)

	// WebsocketClients reports connected live-feed clients.
	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_clients",
			Help: "Number of connected websocket clients",
		},
	)
)
