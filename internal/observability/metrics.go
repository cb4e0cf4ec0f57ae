// Package observability provides Prometheus metrics and OpenTelemetry tracing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pictogram_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"operation"})

	// GraphMutations counts follow/like/comment/delete mutations by outcome.
	GraphMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pictogram_graph_mutations_total",
		Help: "Social graph mutations by operation and outcome",
	}, []string{"operation", "outcome"})

	// NotificationsAppended counts mailbox entries written by fan-out.
	NotificationsAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pictogram_notifications_appended_total",
		Help: "Notifications appended to user mailboxes",
	}, []string{"kind"})

	// CascadeStepFailures counts failed steps of account deletion.
	CascadeStepFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pictogram_cascade_step_failures_total",
		Help: "Failed steps of the cascading account deletion",
	}, []string{"step"})

	// BlobOperations counts blob store calls by operation and outcome.
	BlobOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pictogram_blob_operations_total",
		Help: "Blob store operations by operation and outcome",
	}, []string{"operation", "outcome"})

	// ImageProcessingSeconds records resize+encode latency per preset.
	ImageProcessingSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pictogram_image_processing_seconds",
		Help:    "Image decode, resize and encode latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"preset"})

	// ImageWorkersBusy is the number of occupied image worker slots.
	ImageWorkersBusy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pictogram_image_workers_busy",
		Help: "Image processing slots currently in use",
	})

	// MailDeliveries counts outbound mail attempts by template and outcome.
	MailDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pictogram_mail_deliveries_total",
		Help: "Outbound mail attempts by template and outcome",
	}, []string{"template", "outcome"})
)

// Outcome returns the metric label for err.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
