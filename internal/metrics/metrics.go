package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all expense server metrics
const namespace = "expenses"

// Registry is the global Prometheus registry for all metrics
var Registry = prometheus.NewRegistry()

// AppInfo is a gauge that exposes application version information as labels
var AppInfo = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "app_info",
		Help:      "Application version information (always set to 1, version info in labels)",
	},
	[]string{"version", "commit", "build_date"},
)

// HealthCheckStatus tracks individual readiness check results
// Values: 0 = fail, 1 = pass
var HealthCheckStatus = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "health_check_status",
		Help:      "Individual health check status (0=fail, 1=pass)",
	},
	[]string{"check"},
)

// JobFailuresTotal counts background job errors and panics by job kind
var JobFailuresTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_failures_total",
		Help:      "Total number of failed background job attempts",
	},
	[]string{"kind", "failure"},
)

// ExpensesSubmittedTotal counts new submissions by expense type
var ExpensesSubmittedTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submitted_total",
		Help:      "Total number of submitted expenses",
	},
	[]string{"type"},
)

// ExpenseDecisionsTotal counts review decisions by resulting status
var ExpenseDecisionsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "decisions_total",
		Help:      "Total number of review decisions applied to expenses",
	},
	[]string{"status"},
)

// OCR metrics

// OCRRequestsTotal tracks extraction calls to the hosted vision model
var OCRRequestsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ocr_requests_total",
		Help:      "Total number of OCR extraction requests",
	},
	[]string{"status"}, // status: success|unreadable|error
)

// OCRLatency tracks vision model request latency
var OCRLatency = promauto.With(Registry).NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ocr_latency_seconds",
		Help:      "Vision model extraction latency in seconds",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
	},
)

// Notification metrics

// NotificationsSentTotal counts decision emails by outcome
var NotificationsSentTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_sent_total",
		Help:      "Total number of decision notification emails",
	},
	[]string{"status"}, // status: sent|skipped|error
)

// Background job metrics

// AuditEntriesPurgedTotal tracks audit rows removed by the retention job
var AuditEntriesPurgedTotal = promauto.With(Registry).NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_entries_purged_total",
		Help:      "Total number of audit entries removed by the retention job",
	},
)

// StaleSubmissionsFlaggedTotal tracks expenses flagged by the cleanup job
var StaleSubmissionsFlaggedTotal = promauto.With(Registry).NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stale_submissions_flagged_total",
		Help:      "Total number of stale submissions flagged for review",
	},
)

// Init initializes the metrics registry and sets version information
func Init(version, commit, buildDate string) {
	// Register default Go metrics (memory, goroutines, GC, etc.)
	Registry.MustRegister(collectors.NewGoCollector())

	// Register process metrics (CPU, memory, file descriptors)
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	AppInfo.WithLabelValues(version, commit, buildDate).Set(1)
}
