package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters, gauges and histograms for the tournament service.
type Metrics struct {
	registry             *prometheus.Registry
	requestsTotal        prometheus.Counter
	errorsTotal          prometheus.Counter
	sessionsStartedTotal prometheus.Counter
	poolsBuiltTotal      *prometheus.CounterVec
	poolSize             *prometheus.HistogramVec
	bracketsSampledTotal prometheus.Counter
	activeSessions       prometheus.Gauge
}

// New creates and registers Prometheus metrics for the service.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tournament_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tournament_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	sessionsStartedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tournament_sessions_started_total",
		Help: "Total number of sessions created by a successful login",
	})
	poolsBuiltTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tournament_pools_built_total",
		Help: "Total number of candidate pools built, by source",
	}, []string{"source"})
	poolSize := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tournament_pool_size",
		Help:    "Number of videos in built candidate pools, by source",
		Buckets: []float64{0, 2, 4, 8, 16, 32, 64, 128, 256},
	}, []string{"source"})
	bracketsSampledTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tournament_brackets_sampled_total",
		Help: "Total number of brackets drawn",
	})
	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tournament_active_sessions",
		Help: "Number of live sessions",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		sessionsStartedTotal,
		poolsBuiltTotal,
		poolSize,
		bracketsSampledTotal,
		activeSessions,
	)

	return &Metrics{
		registry:             registry,
		requestsTotal:        requestsTotal,
		errorsTotal:          errorsTotal,
		sessionsStartedTotal: sessionsStartedTotal,
		poolsBuiltTotal:      poolsBuiltTotal,
		poolSize:             poolSize,
		bracketsSampledTotal: bracketsSampledTotal,
		activeSessions:       activeSessions,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncSessionsStarted increments the sessions started counter.
func (m *Metrics) IncSessionsStarted() {
	m.sessionsStartedTotal.Inc()
}

// ObservePool records a built pool of the given size for source.
func (m *Metrics) ObservePool(source string, size int) {
	m.poolsBuiltTotal.WithLabelValues(source).Inc()
	m.poolSize.WithLabelValues(source).Observe(float64(size))
}

// IncBracketsSampled increments the brackets sampled counter.
func (m *Metrics) IncBracketsSampled() {
	m.bracketsSampledTotal.Inc()
}

// SetActiveSessions sets the active sessions gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. active sessions).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
