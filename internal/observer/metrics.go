package observer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsEnabled = true // Flag to control metric collection

	// Labels for webhook delivery metrics
	deliveryLabels = []string{"event_type", "outcome"}

	// Webhook delivery counters, labeled by terminal outcome
	// (processed, duplicate, unauthorized, malformed, unknown_type, handler_error).
	WebhookDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demo_events_webhook_deliveries_total",
			Help: "Total number of webhook deliveries received, labeled by outcome.",
		},
		deliveryLabels,
	)

	AuthFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demo_events_auth_failures_total",
			Help: "Total number of rejected deliveries, labeled by verification method.",
		},
		[]string{"method"},
	)

	DuplicateEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demo_events_duplicate_events_total",
			Help: "Total number of deliveries short-circuited by the idempotency ledger.",
		},
		[]string{"event_type"},
	)

	PartialIngestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demo_events_partial_ingestions_total",
			Help: "Total number of events where at least one table write failed, labeled by table.",
		},
		[]string{"table"},
	)

	// Histogram for end-to-end pipeline duration per delivery.
	PipelineDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "demo_events_pipeline_duration_seconds",
			Help:    "Histogram of webhook pipeline durations from decode to acknowledgment.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"event_type"},
	)
)

// Labels for database operations
var (
	dbOperationLabels = []string{"operation", "entity", "status"}

	DatabaseOperationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "demo_events_db_operation_duration_seconds",
			Help:    "Histogram of database operation durations.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
		dbOperationLabels,
	)
)

// --- Analytics Worker Pool Metrics ---
var (
	analyticsTasksSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demo_events_analytics_tasks_submitted_total",
		Help: "Total number of counter-bump tasks submitted to the analytics worker pool.",
	})
	analyticsTasksProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demo_events_analytics_tasks_processed_total",
			Help: "Total number of counter-bump tasks processed, labeled by final status.",
		},
		[]string{"status"},
	)
	analyticsQueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "demo_events_analytics_queue_length",
		Help: "Approximate number of tasks waiting in the analytics worker pool queue.",
	})
)

// --- Live Feed Notifier Metrics ---
var (
	notifierPublishesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demo_events_notifier_publishes_total",
			Help: "Total number of live feed notifications published, labeled by status.",
		},
		[]string{"status"},
	)
)

// --- Ledger Retention Metrics ---
var (
	ledgerRowsPrunedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demo_events_ledger_rows_pruned_total",
		Help: "Total number of idempotency ledger rows deleted by the retention sweeper.",
	})
)

// InitMetrics initializes the Prometheus metric collection if enabled.
// Call this function during application startup.
func InitMetrics(enabled bool) {
	metricsEnabled = enabled
}

// IncWebhookDelivery increments the delivery counter for a terminal outcome.
func IncWebhookDelivery(eventType, outcome string) {
	if !metricsEnabled {
		return
	}
	WebhookDeliveriesTotal.WithLabelValues(sanitizeEventType(eventType), outcome).Inc()
}

// IncAuthFailure increments the rejected-delivery counter per method.
func IncAuthFailure(method string) {
	if !metricsEnabled {
		return
	}
	AuthFailuresTotal.WithLabelValues(method).Inc()
}

// IncDuplicateEvent increments the idempotency short-circuit counter.
func IncDuplicateEvent(eventType string) {
	if !metricsEnabled {
		return
	}
	DuplicateEventsTotal.WithLabelValues(sanitizeEventType(eventType)).Inc()
}

// IncPartialIngestion increments the failed-table counter.
func IncPartialIngestion(table string) {
	if !metricsEnabled {
		return
	}
	PartialIngestionsTotal.WithLabelValues(table).Inc()
}

// ObservePipelineDuration records the end-to-end handling time for a delivery.
func ObservePipelineDuration(eventType string, duration time.Duration) {
	if !metricsEnabled {
		return
	}
	PipelineDurationSeconds.WithLabelValues(sanitizeEventType(eventType)).Observe(duration.Seconds())
}

// ObserveDbOperationDuration records the duration for a database operation.
func ObserveDbOperationDuration(operation, entity string, duration time.Duration, err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	DatabaseOperationDurationSeconds.WithLabelValues(operation, entity, status).Observe(duration.Seconds())
}

// --- Analytics Worker Metric Helpers ---

// IncAnalyticsTasksSubmitted increments the submitted counter-bump task counter.
func IncAnalyticsTasksSubmitted() {
	if !metricsEnabled {
		return
	}
	analyticsTasksSubmittedTotal.Inc()
}

// IncAnalyticsTasksProcessed increments the processed task counter by status.
func IncAnalyticsTasksProcessed(status string) {
	if !metricsEnabled {
		return
	}
	analyticsTasksProcessedTotal.WithLabelValues(status).Inc()
}

// SetAnalyticsQueueLength sets the current analytics pool queue length.
func SetAnalyticsQueueLength(length int) {
	if !metricsEnabled {
		return
	}
	analyticsQueueLength.Set(float64(length))
}

// --- Notifier Metric Helpers ---

// IncNotifierPublish increments the live feed publish counter by status.
func IncNotifierPublish(status string) {
	if !metricsEnabled {
		return
	}
	notifierPublishesTotal.WithLabelValues(status).Inc()
}

// --- Retention Metric Helpers ---

// AddLedgerRowsPruned records rows deleted by one retention sweep.
func AddLedgerRowsPruned(count int64) {
	if !metricsEnabled {
		return
	}
	ledgerRowsPrunedTotal.Add(float64(count))
}

// sanitizeEventType bounds label cardinality against arbitrary provider
// strings.
func sanitizeEventType(eventType string) string {
	if eventType == "" {
		return "unknown"
	}
	if len(eventType) > 64 {
		return eventType[:64]
	}
	return eventType
}
