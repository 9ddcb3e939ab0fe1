package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics records gateway notification outcomes.
type WebhookMetrics struct {
	outcomes *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_notifications_total",
		Help:      "Payment gateway notifications by gateway and outcome.",
	}, []string{"gateway", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "payment_notification_duration_seconds",
		Help:      "Time spent processing payment gateway notifications.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"gateway"})
	reg.MustRegister(outcomes, duration)
	return &WebhookMetrics{
		outcomes: outcomes,
		duration: duration,
	}
}

// IncOutcome counts one processed notification.
func (w *WebhookMetrics) IncOutcome(gateway, outcome string) {
	if w == nil || w.outcomes == nil {
		return
	}
	w.outcomes.WithLabelValues(normalizeLabel(gateway), normalizeLabel(outcome)).Inc()
}

// ObserveDuration records how long one notification took.
func (w *WebhookMetrics) ObserveDuration(gateway string, duration time.Duration) {
	if w == nil || w.duration == nil {
		return
	}
	w.duration.WithLabelValues(normalizeLabel(gateway)).Observe(duration.Seconds())
}
