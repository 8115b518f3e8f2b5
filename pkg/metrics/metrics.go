package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)

	// Builder metrics
	EntityOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "builder_entity_operations_total",
			Help: "Total number of successful create, update and delete operations per entity",
		},
		[]string{"entity", "operation"},
	)

	ExecutionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_execution_transitions_total",
			Help: "Total number of execution status writes, by resulting status",
		},
		[]string{"status"},
	)

	ExecutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "workflow_execution_duration_seconds",
			Help:    "Time between execution start and the terminal status being stamped",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
	)

	NodeConfigsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "node_configs_created_total",
			Help: "Total number of node configurations created",
		},
		[]string{"node_type"},
	)

	// Health metrics
	DependencyUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dependency_up",
			Help: "Whether a dependency passed its last readiness check (1) or not (0)",
		},
		[]string{"dependency"},
	)

	// Event bus metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of events published",
		},
		[]string{"event_type"},
	)

	EventsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_failed_total",
			Help: "Total number of events that could not be published",
		},
		[]string{"event_type"},
	)
)

// RecordHTTPRequest records an HTTP request metric
func RecordHTTPRequest(service, method, path, status string) {
	HTTPRequestsTotal.WithLabelValues(service, method, path, status).Inc()
}

// RecordHTTPDuration records HTTP request duration
func RecordHTTPDuration(service, method, path string, duration float64) {
	HTTPRequestDuration.WithLabelValues(service, method, path).Observe(duration)
}

func RecordEntityOperation(entity, operation string) {
	EntityOperationsTotal.WithLabelValues(entity, operation).Inc()
}

func RecordExecutionStatus(status string) {
	ExecutionTransitionsTotal.WithLabelValues(status).Inc()
}

func RecordExecutionDuration(seconds float64) {
	ExecutionDuration.Observe(seconds)
}

func RecordNodeConfig(nodeType string) {
	NodeConfigsTotal.WithLabelValues(nodeType).Inc()
}

func RecordDependency(name string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	DependencyUp.WithLabelValues(name).Set(v)
}

func RecordEventPublished(eventType string) {
	EventsPublished.WithLabelValues(eventType).Inc()
}

func RecordEventFailed(eventType string) {
	EventsFailed.WithLabelValues(eventType).Inc()
}
