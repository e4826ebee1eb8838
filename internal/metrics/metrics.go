package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Webhook metrics
	WebhookEventsTotal     *prometheus.CounterVec
	WebhookDurationSeconds *prometheus.HistogramVec

	// Routing metrics
	SuppressedEventsTotal *prometheus.CounterVec
	IntentMatchesTotal    *prometheus.CounterVec

	// Outbound send metrics
	SendAttemptsTotal   *prometheus.CounterVec
	SendRetriesTotal    prometheus.Counter
	SendDurationSeconds prometheus.Histogram

	// Conversation state metrics
	ConversationEntries prometheus.Gauge

	// Rate limiter metrics
	RateLimiterDropped prometheus.Counter
	RateLimiterSenders prometheus.Gauge
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		WebhookEventsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "crewbot_webhook_events_total",
				Help: "Total number of webhook events by type and status",
			},
			[]string{"event_type", "status"}, // event_type: message, quick_reply, postback, thread_control; status: success, error, skipped
		),

		WebhookDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crewbot_webhook_duration_seconds",
				Help:    "Webhook event processing duration in seconds by event type",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
			},
			[]string{"event_type"},
		),

		SuppressedEventsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "crewbot_suppressed_events_total",
				Help: "Total number of events the handoff gate suppressed by reason",
			},
			[]string{"reason"}, // reason: human_controlled, human_keyword, pause_window, fallback_cooldown
		),

		IntentMatchesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "crewbot_intent_matches_total",
				Help: "Total number of classified intents by intent tag",
			},
			[]string{"intent"},
		),

		SendAttemptsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "crewbot_send_attempts_total",
				Help: "Total number of Graph API send attempts by status",
			},
			[]string{"status"}, // status: success, error, exhausted
		),

		SendRetriesTotal: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "crewbot_send_retries_total",
				Help: "Total number of Graph API send retries",
			},
		),

		SendDurationSeconds: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crewbot_send_duration_seconds",
				Help:    "Graph API send call duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		),

		ConversationEntries: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "crewbot_conversation_entries",
				Help: "Current number of per-sender conversation state entries",
			},
		),

		RateLimiterDropped: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "crewbot_rate_limiter_dropped_total",
				Help: "Total number of events dropped by the per-sender rate limiter",
			},
		),

		RateLimiterSenders: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "crewbot_rate_limiter_senders",
				Help: "Current number of senders tracked by the rate limiter",
			},
		),
	}

	return m
}

// RecordEvent increments the webhook event counter and observes its duration.
func (m *Metrics) RecordEvent(eventType, status string, seconds float64) {
	m.WebhookEventsTotal.WithLabelValues(eventType, status).Inc()
	if seconds > 0 {
		m.WebhookDurationSeconds.WithLabelValues(eventType).Observe(seconds)
	}
}

// RecordSuppressed increments the suppression counter for a gate reason.
func (m *Metrics) RecordSuppressed(reason string) {
	m.SuppressedEventsTotal.WithLabelValues(reason).Inc()
}

// RecordIntent increments the intent match counter.
func (m *Metrics) RecordIntent(intent string) {
	m.IntentMatchesTotal.WithLabelValues(intent).Inc()
}

// RecordSend increments the send attempt counter and observes its duration.
func (m *Metrics) RecordSend(status string, seconds float64) {
	m.SendAttemptsTotal.WithLabelValues(status).Inc()
	if seconds > 0 {
		m.SendDurationSeconds.Observe(seconds)
	}
}

// RecordSendRetry increments the send retry counter.
func (m *Metrics) RecordSendRetry() {
	m.SendRetriesTotal.Inc()
}

// SetConversationEntries updates the conversation state store gauge.
func (m *Metrics) SetConversationEntries(count int) {
	m.ConversationEntries.Set(float64(count))
}

// RecordRateLimiterDrop increments the rate limiter drop counter.
func (m *Metrics) RecordRateLimiterDrop() {
	m.RateLimiterDropped.Inc()
}

// SetRateLimiterSenders updates the tracked-sender gauge.
func (m *Metrics) SetRateLimiterSenders(count int) {
	m.RateLimiterSenders.Set(float64(count))
}
