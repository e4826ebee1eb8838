// Package main provides the recruiting bot server entry point.
package main

import (
	"context"
	"time"

	"github.com/horizonjapan/crewbot/internal/bot"
	"github.com/horizonjapan/crewbot/internal/config"
	"github.com/horizonjapan/crewbot/internal/logger"
	"github.com/horizonjapan/crewbot/internal/metrics"
	"github.com/horizonjapan/crewbot/internal/ratelimit"
)

// updateGaugeMetrics periodically refreshes gauge metrics with the current
// conversation entry and active rate limiter counts. The store and limiter
// also push updates from their own eviction loops; this job covers quiet
// periods between evictions.
func updateGaugeMetrics(ctx context.Context, store *bot.Store, limiter *ratelimit.PerKeyLimiter, m *metrics.Metrics, log *logger.Logger) {
	ticker := time.NewTicker(config.MetricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SetConversationEntries(store.Len())
			m.SetRateLimiterSenders(limiter.ActiveCount())
			log.WithField("conversations", store.Len()).
				WithField("rate_limited_senders", limiter.ActiveCount()).
				Debug("Gauge metrics updated")
		}
	}
}
