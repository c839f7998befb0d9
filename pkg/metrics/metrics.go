package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Detection metrics
	IncidentsDetected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_incidents_detected_total",
			Help: "Total number of incidents detected by condition type",
		},
		[]string{"condition"},
	)

	ThresholdViolations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_threshold_violations_total",
			Help: "Total number of threshold violation onsets by condition",
		},
		[]string{"condition"},
	)

	PollDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_poll_duration_seconds",
			Help:    "Poll cycle duration in seconds by poller",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"poller"},
	)

	PollErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_poll_errors_total",
			Help: "Total number of failed poll cycles by poller",
		},
		[]string{"poller"},
	)

	// Execution metrics
	RemediationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_remediations_total",
			Help: "Total number of remediation attempts by terminal result",
		},
		[]string{"result"},
	)

	GuardrailBlocks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_guardrail_blocks_total",
			Help: "Total number of guardrail blocks by guardrail",
		},
		[]string{"guardrail"},
	)

	EscalationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_escalations_total",
			Help: "Total number of incidents escalated to a human operator",
		},
	)

	ActiveRemediations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_active_remediations",
			Help: "Number of remediations currently in flight (0 or 1)",
		},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_queue_depth",
			Help: "Number of incidents waiting in the execution queue",
		},
	)

	DroppedIncidents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_dropped_incidents_total",
			Help: "Total number of incidents dropped because the queue was full",
		},
	)

	// Notification metrics
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_notifications_total",
			Help: "Total number of notifications by kind and delivery status",
		},
		[]string{"kind", "status"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(IncidentsDetected)
	prometheus.MustRegister(ThresholdViolations)
	prometheus.MustRegister(PollDuration)
	prometheus.MustRegister(PollErrors)
	prometheus.MustRegister(RemediationsTotal)
	prometheus.MustRegister(GuardrailBlocks)
	prometheus.MustRegister(EscalationsTotal)
	prometheus.MustRegister(ActiveRemediations)
	prometheus.MustRegister(QueueDepth)
	prometheus.MustRegister(DroppedIncidents)
	prometheus.MustRegister(NotificationsTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
