package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	// Tracker metrics
	PollRounds      *prometheus.CounterVec
	PollDuration    *prometheus.HistogramVec
	ProbeErrors     *prometheus.CounterVec
	LifecycleEvents *prometheus.CounterVec

	// Socket registry metrics
	SocketsCached *prometheus.GaugeVec
	SocketOpens   *prometheus.CounterVec

	// Log pipeline metrics
	LogRecords      *prometheus.CounterVec
	SourceMapMisses *prometheus.CounterVec

	// Inspection API metrics
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	StreamConnections prometheus.Gauge
}

// NewMetrics creates a metrics set on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		PollRounds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devicesession_poll_rounds_total",
				Help: "Application tracker poll rounds by outcome",
			},
			[]string{"device", "status"},
		),
		PollDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "devicesession_poll_round_duration_seconds",
				Help:    "Duration of application tracker poll rounds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"device"},
		),
		ProbeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devicesession_probe_errors_total",
				Help: "Failed device adapter probes",
			},
			[]string{"device", "probe"},
		),
		LifecycleEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devicesession_lifecycle_events_total",
				Help: "Application lifecycle events emitted",
			},
			[]string{"device", "kind"},
		),

		SocketsCached: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "devicesession_sockets_cached",
				Help: "Livesync/debug sockets currently cached",
			},
			[]string{"device"},
		),
		SocketOpens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devicesession_socket_opens_total",
				Help: "Channel open attempts by kind and outcome",
			},
			[]string{"device", "kind", "status"},
		),

		LogRecords: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devicesession_log_records_total",
				Help: "Device log chunks by pipeline outcome",
			},
			[]string{"device", "outcome"},
		),
		SourceMapMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devicesession_sourcemap_misses_total",
				Help: "Stack locations that could not be mapped to original sources",
			},
			[]string{"platform"},
		),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devicesession_http_requests_total",
				Help: "Inspection API requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "devicesession_http_request_duration_seconds",
				Help:    "Inspection API request duration",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "path"},
		),
		StreamConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "devicesession_stream_connections",
				Help: "Open event stream connections",
			},
		),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordPollRound records one tracker round.
func (m *Metrics) RecordPollRound(device, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.PollRounds.WithLabelValues(device, status).Inc()
	m.PollDuration.WithLabelValues(device).Observe(duration.Seconds())
}

// RecordProbeError records a failed adapter probe.
func (m *Metrics) RecordProbeError(device, probe string) {
	if m == nil {
		return
	}
	m.ProbeErrors.WithLabelValues(device, probe).Inc()
}

// RecordLifecycleEvent records an emitted tracker event.
func (m *Metrics) RecordLifecycleEvent(device, kind string) {
	if m == nil {
		return
	}
	m.LifecycleEvents.WithLabelValues(device, kind).Inc()
}

// SetSocketsCached sets the cached socket count for a device.
func (m *Metrics) SetSocketsCached(device string, count int) {
	if m == nil {
		return
	}
	m.SocketsCached.WithLabelValues(device).Set(float64(count))
}

// RecordSocketOpen records a channel open attempt.
func (m *Metrics) RecordSocketOpen(device, kind, status string) {
	if m == nil {
		return
	}
	m.SocketOpens.WithLabelValues(device, kind, status).Inc()
}

// RecordLogRecord records a pipeline outcome ("emitted" or "filtered").
func (m *Metrics) RecordLogRecord(device, outcome string) {
	if m == nil {
		return
	}
	m.LogRecords.WithLabelValues(device, outcome).Inc()
}

// RecordSourceMapMiss records a stack location left unmapped.
func (m *Metrics) RecordSourceMapMiss(platform string) {
	if m == nil {
		return
	}
	m.SourceMapMisses.WithLabelValues(platform).Inc()
}

// RecordHTTPRequest records an inspection API request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, status).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// IncStreamConnections increments open stream connections.
func (m *Metrics) IncStreamConnections() {
	if m == nil {
		return
	}
	m.StreamConnections.Inc()
}

// DecStreamConnections decrements open stream connections.
func (m *Metrics) DecStreamConnections() {
	if m == nil {
		return
	}
	m.StreamConnections.Dec()
}
