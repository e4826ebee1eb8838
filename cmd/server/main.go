// Package main provides the recruiting bot server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/horizonjapan/crewbot/internal/bot"
	"github.com/horizonjapan/crewbot/internal/buildinfo"
	"github.com/horizonjapan/crewbot/internal/config"
	"github.com/horizonjapan/crewbot/internal/logger"
	"github.com/horizonjapan/crewbot/internal/messenger"
	"github.com/horizonjapan/crewbot/internal/metrics"
	"github.com/horizonjapan/crewbot/internal/ratelimit"
	"github.com/horizonjapan/crewbot/internal/sentry"
	"github.com/horizonjapan/crewbot/internal/webhook"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel)
	log.WithField("version", buildinfo.Version).Info("Starting Horizon Japan recruiting bot")

	// Initialize error tracking (no-op without a DSN)
	if err := sentry.Initialize(sentry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     buildinfo.Version,
	}); err != nil {
		log.WithError(err).Warn("Failed to initialize Sentry, error tracking disabled")
	}
	defer sentry.Flush(2 * time.Second)

	// Create Prometheus registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(collectors.NewBuildInfoCollector())

	m := metrics.New(registry)
	log.Info("Metrics initialized")

	// Create Graph API client
	client := messenger.NewClient(messenger.ClientConfig{
		BaseURL:        cfg.GraphBaseURL,
		AccessToken:    cfg.PageAccessToken,
		AttemptTimeout: cfg.Bot.SendTimeout,
		Policy: messenger.RetryPolicy{
			MaxRetries: cfg.Bot.SendRetries,
			BaseDelay:  cfg.Bot.SendRetryDelay,
		},
		Logger:  log,
		Metrics: m,
	})
	log.Info("Graph API client created")

	// Provision the messenger profile (Get Started, greeting, persistent menu).
	// Best-effort: a failure here degrades the first-contact experience but
	// must not block startup.
	profileCtx, profileCancel := context.WithTimeout(context.Background(), config.ProfileProvision)
	if err := client.EnsureProfile(profileCtx, bot.ProfileSettings()); err != nil {
		log.WithError(err).Warn("Failed to provision messenger profile")
		sentry.CaptureException(err)
	} else {
		log.Info("Messenger profile provisioned")
	}
	profileCancel()

	// Conversation state store with background eviction
	store := bot.NewStore(bot.StoreConfig{
		PauseWindow:    cfg.Bot.HumanPauseWindow,
		Cooldown:       cfg.Bot.FallbackCooldown,
		EvictionPeriod: config.StateEvictionInterval,
	})
	store.OnUpdate(m.SetConversationEntries)
	defer store.Stop()
	log.WithField("pause_window", cfg.Bot.HumanPauseWindow).
		WithField("fallback_cooldown", cfg.Bot.FallbackCooldown).
		Info("Conversation store created")

	// Per-sender anti-spam rate limiter
	limiter := ratelimit.NewPerKeyLimiter(ratelimit.PerKeyLimiterConfig{
		MaxTokens:     cfg.Bot.SenderRateLimitBurst,
		RefillRate:    cfg.Bot.SenderRateLimitPerSecond,
		CleanupPeriod: config.RateLimiterCleanupInterval,
	})
	limiter.OnDrop(m.RecordRateLimiterDrop)
	limiter.OnUpdate(m.SetRateLimiterSenders)
	defer limiter.Stop()

	// Conversation engine
	dispatcher := bot.NewDispatcher(client, store, log, m)
	processor := bot.NewProcessor(bot.ProcessorConfig{
		Gate:       bot.NewGate(store),
		Store:      store,
		Dispatcher: dispatcher,
		Limiter:    limiter,
		Logger:     log,
		Metrics:    m,
	})

	// Webhook handler
	webhookHandler := webhook.NewHandler(webhook.HandlerConfig{
		VerifyToken: cfg.VerifyToken,
		AppSecret:   cfg.AppSecret,
		BotConfig:   &cfg.Bot,
		Metrics:     m,
		Logger:      log,
		Processor:   processor,
	})
	log.Info("Webhook handler created")

	// Set Gin mode based on log level
	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	if sentry.IsEnabled() {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(log))

	setupRoutes(router, cfg, webhookHandler, store, registry)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  config.WebhookHTTPRead,
		WriteTimeout: config.WebhookHTTPWrite,
		IdleTimeout:  config.WebhookHTTPIdle,
	}

	// Start background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	// Gauge metrics updater goroutine (every 5 minutes)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.WithField("panic", r).Error("Panic in metrics updater goroutine")
			}
		}()
		updateGaugeMetrics(ctx, store, limiter, m, log)
	}()

	// Start server in goroutine
	go func() {
		log.WithField("port", cfg.Port).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Cancel context to stop background goroutines
	cancel()

	goDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(goDone)
	}()

	select {
	case <-goDone:
		log.Info("All background goroutines stopped")
	case <-time.After(5 * time.Second):
		log.Warn("Timeout waiting for goroutines to stop")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	// Stop accepting requests, then drain in-flight webhook batches and
	// outbound deliveries.
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	log.Info("Waiting for webhook events to complete...")
	if err := webhookHandler.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Timeout waiting for webhook events")
	}
	dispatcher.Wait()

	log.Info("Server stopped")
}
