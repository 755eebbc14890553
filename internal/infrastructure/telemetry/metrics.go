package telemetry

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopadmin/backend/internal/domain/idempotency"
	"github.com/shopadmin/backend/internal/domain/identity"
)

// DefaultNamespace prefixes every metric name
const DefaultNamespace = "shop_admin"

// Metrics holds the Prometheus collectors of the admin backend on a
// private registry.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInFlight        prometheus.Gauge

	mutationsTotal      *prometheus.CounterVec
	mutationDuration    *prometheus.HistogramVec
	idempotencyOutcomes *prometheus.CounterVec
	accessDenied        *prometheus.CounterVec
	fullViews           *prometheus.CounterVec
	slowQueries         *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors, including the Go
// runtime and process collectors.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latencies in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "In-flight HTTP requests.",
		}),

		mutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mutations_total",
				Help:      "Admin mutations by endpoint, result code and replay.",
			},
			[]string{"endpoint", "code", "replayed"},
		),
		mutationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "mutation_duration_seconds",
				Help:      "Admin mutation latency in seconds, including idempotency waits.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"endpoint"},
		),
		idempotencyOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "idempotency_outcomes_total",
				Help:      "Idempotency store decisions by endpoint.",
			},
			[]string{"endpoint", "outcome"},
		),
		accessDenied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "access_denied_total",
				Help:      "Requests refused for a missing permission.",
			},
			[]string{"permission"},
		),
		fullViews: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pii_full_view_total",
				Help:      "Responses that exposed unmasked personal data.",
			},
			[]string{"target_type"},
		),
		slowQueries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_slow_queries_total",
				Help:      "SQL statements slower than the configured threshold, by table.",
			},
			[]string{"table"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal, m.httpRequestDuration, m.httpInFlight,
		m.mutationsTotal, m.mutationDuration, m.idempotencyOutcomes,
		m.accessDenied, m.fullViews, m.slowQueries,
	)
	return m
}

// RegisterDBStats exports connection pool statistics of db
func (m *Metrics) RegisterDBStats(db *sql.DB, dbName string) error {
	return m.registry.Register(collectors.NewDBStatsCollector(db, dbName))
}

// Registry exposes the registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// HTTPStarted marks a request in flight
func (m *Metrics) HTTPStarted() {
	m.httpInFlight.Inc()
}

// HTTPFinished records a completed request. route is the matched route
// template so label cardinality stays bounded.
func (m *Metrics) HTTPFinished(method, route string, status int, elapsed time.Duration) {
	m.httpInFlight.Dec()
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// MutationFinished counts a finished admin mutation
func (m *Metrics) MutationFinished(endpoint, code string, replayed bool, elapsed time.Duration) {
	m.mutationsTotal.WithLabelValues(endpoint, code, strconv.FormatBool(replayed)).Inc()
	m.mutationDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// IdempotencyOutcome counts a store decision
func (m *Metrics) IdempotencyOutcome(endpoint string, outcome idempotency.Outcome) {
	m.idempotencyOutcomes.WithLabelValues(endpoint, outcome.String()).Inc()
}

// AccessDenied counts a permission refusal
func (m *Metrics) AccessDenied(permission identity.Permission) {
	m.accessDenied.WithLabelValues(string(permission)).Inc()
}

// FullViewRecorded counts an unmasked response
func (m *Metrics) FullViewRecorded(targetType string) {
	m.fullViews.WithLabelValues(targetType).Inc()
}

// SlowQuery counts a statement that exceeded the slow query threshold
func (m *Metrics) SlowQuery(table string, _ time.Duration) {
	if table == "" {
		table = "unknown"
	}
	m.slowQueries.WithLabelValues(table).Inc()
}
