package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	namespace = "community_engine"
)

// Metrics holds all application metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	APIErrorsTotal      *prometheus.CounterVec

	// Database metrics
	DBConnectionsOpen        prometheus.Gauge
	DBConnectionsInUse       prometheus.Gauge
	DBConnectionsIdle        prometheus.Gauge
	DBConnectionsMax         prometheus.Gauge
	DBConnectionWaitTotal    prometheus.Gauge
	DBConnectionWaitDuration prometheus.Gauge
	DBQueryDuration          *prometheus.HistogramVec
	DBQueryErrors            *prometheus.CounterVec
	TxRetriesTotal           *prometheus.CounterVec

	// External API metrics
	ExternalAPIRequestDuration *prometheus.HistogramVec
	ExternalAPIRequestsTotal   *prometheus.CounterVec
	ExternalAPIErrors          *prometheus.CounterVec

	// Engine metrics
	VotesCastTotal          *prometheus.CounterVec
	CommentsCreatedTotal    prometheus.Counter
	CommentsDeletedTotal    prometheus.Counter
	RosterTransitionsTotal  *prometheus.CounterVec
	DriftRepairedTotal      *prometheus.CounterVec
	OutboxPublishedTotal    prometheus.Counter
	OutboxPublishErrors     prometheus.Counter
	WaitingParticipants     prometheus.Gauge
	OutboxPending           prometheus.Gauge
	CommentsTotal           prometheus.Gauge

	// Logger for error reporting
	logger *zap.Logger
}

// New creates and registers all metrics with the default registry
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer, nil)
}

// NewWithLogger creates and registers all metrics with the default registry and a logger
func NewWithLogger(logger *zap.Logger) *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer, logger)
}

// NewWithRegistry creates and registers all metrics with a custom registry
func NewWithRegistry(registerer prometheus.Registerer, logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := builder{factory: promauto.With(registerer)}

	return &Metrics{
		HTTPRequestsTotal:   f.counterVec("http_requests_total", "Total number of HTTP requests", "method", "endpoint", "status"),
		HTTPRequestDuration: f.histogramVec("http_request_duration_seconds", "HTTP request duration in seconds", httpBuckets, "method", "endpoint"),
		APIErrorsTotal:      f.counterVec("api_errors_total", "Error responses by route and error code", "endpoint", "code"),

		DBConnectionsOpen:        f.gauge("db_connections_open", "Current number of open database connections"),
		DBConnectionsInUse:       f.gauge("db_connections_in_use", "Current number of in-use database connections"),
		DBConnectionsIdle:        f.gauge("db_connections_idle", "Current number of idle database connections"),
		DBConnectionsMax:         f.gauge("db_connections_max", "Maximum number of open database connections configured"),
		DBConnectionWaitTotal:    f.gauge("db_connection_wait_count", "Cumulative number of waits for a database connection as reported by the pool"),
		DBConnectionWaitDuration: f.gauge("db_connection_wait_duration_seconds", "Cumulative time spent waiting for database connections as reported by the pool"),
		DBQueryDuration:          f.histogramVec("db_query_duration_seconds", "Database query duration in seconds", dbBuckets, "operation", "table"),
		DBQueryErrors:            f.counterVec("db_query_errors_total", "Total number of database query errors by kind", "operation", "table", "kind"),
		TxRetriesTotal:           f.counterVec("tx_retries_total", "Total number of transactions retried after a commit-time conflict", "reason"),

		ExternalAPIRequestDuration: f.histogramVec("external_api_request_duration_seconds", "External API request duration in seconds", externalBuckets, "endpoint", "status"),
		ExternalAPIRequestsTotal:   f.counterVec("external_api_requests_total", "Total number of external API requests", "endpoint", "method", "status"),
		ExternalAPIErrors:          f.counterVec("external_api_errors_total", "Total number of external API errors", "endpoint", "error_type"),

		VotesCastTotal:         f.counterVec("votes_cast_total", "Total number of vote toggles by target kind and outcome", "kind", "outcome"),
		CommentsCreatedTotal:   f.counter("comments_created_total", "Total number of comments created"),
		CommentsDeletedTotal:   f.counter("comments_deleted_total", "Total number of comments removed, descendants included"),
		RosterTransitionsTotal: f.counterVec("roster_transitions_total", "Total number of roster transitions", "transition"),
		DriftRepairedTotal:     f.counterVec("drift_repaired_total", "Total number of cached counters repaired by reconciliation", "kind"),
		OutboxPublishedTotal:   f.counter("outbox_published_total", "Total number of outbox events published"),
		OutboxPublishErrors:    f.counter("outbox_publish_errors_total", "Total number of failed outbox publish attempts"),
		WaitingParticipants:    f.gauge("waiting_participants", "Current number of participants on waiting lists"),
		OutboxPending:          f.gauge("outbox_pending", "Current number of unpublished outbox events"),
		CommentsTotal:          f.gauge("comments", "Current number of stored comments"),

		logger: logger,
	}
}

var (
	httpBuckets     = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	dbBuckets       = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5}
	externalBuckets = []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
)

// builder registers collectors under the service namespace
type builder struct {
	factory promauto.Factory
}

func (b builder) counter(name, help string) prometheus.Counter {
	return b.factory.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
}

func (b builder) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return b.factory.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
}

func (b builder) gauge(name, help string) prometheus.Gauge {
	return b.factory.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
}

func (b builder) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return b.factory.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: name, Help: help, Buckets: buckets}, labels)
}

// safeExecute wraps metric operations with panic recovery.
// A nil *Metrics is a valid no-op recorder.
func (m *Metrics) safeExecute(operation string, fn func()) {
	if m == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Panic in metrics operation",
				zap.String("operation", operation),
				zap.Any("panic", r),
			)
		}
	}()
	fn()
}
