// Package config provides centralized timeout constants for the application.
//
// These values are tuned around Messenger Platform expectations:
//   - Webhook deliveries must be acknowledged quickly (Meta retries slow or
//     failed deliveries, which shows up as duplicate events)
//   - Outbound Send API calls occasionally stall under provider slowness and
//     need a per-attempt bound so retry timers cannot pile up
package config

import "time"

// DefaultGraphBaseURL is the Facebook Graph API endpoint used for the
// Send API and messenger profile provisioning.
const DefaultGraphBaseURL = "https://graph.facebook.com/v18.0"

// Conversation windows
const (
	// DefaultHumanPauseWindow is how long the bot stays silent for a sender
	// after their text matched a human-escalation keyword. Rolling: each new
	// keyword hit restarts the window.
	DefaultHumanPauseWindow = 60 * time.Minute

	// DefaultFallbackCooldown is the minimum gap between catch-all
	// "an agent will be with you" replies to the same sender.
	DefaultFallbackCooldown = 12 * time.Hour
)

// Outbound delivery timeouts
const (
	// SendAttempt is the per-attempt timeout for a Graph API send call.
	// Conservative: the Send API normally answers well under a second.
	SendAttempt = 10 * time.Second

	// SendRetryBase is the base delay unit for linear retry backoff.
	// Attempts wait 1x, 2x, 3x this value.
	SendRetryBase = 1 * time.Second

	// ProfileProvision is the timeout for the one-shot messenger profile
	// provisioning calls at startup.
	ProfileProvision = 15 * time.Second
)

// Webhook HTTP server timeouts
const (
	// WebhookHTTPRead is the HTTP server read timeout for webhook requests.
	// Should be short since Meta sends small JSON payloads.
	WebhookHTTPRead = 10 * time.Second

	// WebhookHTTPWrite is the HTTP server write timeout. The webhook body is
	// acknowledged before processing, so responses are immediate.
	WebhookHTTPWrite = 15 * time.Second

	// WebhookHTTPIdle is the HTTP server idle timeout for keep-alive connections.
	WebhookHTTPIdle = 120 * time.Second
)

// Background job intervals
const (
	// StateEvictionInterval is how often expired conversation state entries
	// are removed from the in-memory store.
	StateEvictionInterval = 30 * time.Minute

	// MetricsUpdateInterval is how often gauge metrics (active conversation
	// entries, rate limiter keys) are refreshed.
	MetricsUpdateInterval = 5 * time.Minute

	// RateLimiterCleanupInterval is how often inactive sender rate limiters are cleaned.
	RateLimiterCleanupInterval = 5 * time.Minute
)

// Graceful shutdown
const (
	// GracefulShutdown is the timeout for graceful server shutdown.
	// Allows in-flight webhook acknowledgments to complete before termination.
	GracefulShutdown = 30 * time.Second
)
