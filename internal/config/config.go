// Package config provides application configuration management.
// It loads settings from environment variables and provides defaults for
// server mode, conversation windows, outbound retry and timeouts.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Messenger Platform Configuration
	PageAccessToken string // Page access token for the Graph API send/profile endpoints
	VerifyToken     string // Shared secret echoed during webhook verification
	AppSecret       string // App secret for X-Hub-Signature-256 validation (empty = skip)
	GraphBaseURL    string // Graph API base URL, overridable for tests

	// Metrics Authentication
	MetricsUsername string // Username for /metrics endpoint Basic Auth (default: "prometheus")
	MetricsPassword string // Password for /metrics endpoint Basic Auth (empty = no auth)

	// Error Tracking
	SentryDSN         string // Sentry DSN (empty = disabled)
	SentryEnvironment string // Deployment environment tag

	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration

	// Bot Configuration (embedded)
	Bot BotConfig
}

// BotConfig holds conversation engine configuration
type BotConfig struct {
	// Windows
	HumanPauseWindow time.Duration // Rolling suppression window after a human-escalation keyword
	FallbackCooldown time.Duration // Minimum gap between catch-all fallback replies per sender

	// Outbound delivery
	SendTimeout    time.Duration // Per-attempt timeout for Graph API send calls
	SendRetries    int           // Additional attempts after the first failure
	SendRetryDelay time.Duration // Base delay unit for linear backoff

	// Rate Limits (Token Bucket Algorithm)
	SenderRateLimitBurst     float64 // Maximum burst tokens per sender
	SenderRateLimitPerSecond float64 // Tokens refilled per second

	// Webhook constraints
	MaxEventsPerWebhook int // Maximum messaging events accepted per webhook batch
}

// Load reads configuration from environment variables
// It attempts to load .env file first, then reads from env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		PageAccessToken: getEnv("PAGE_ACCESS_TOKEN", ""),
		VerifyToken:     getEnv("VERIFY_TOKEN", ""),
		AppSecret:       getEnv("APP_SECRET", ""),
		GraphBaseURL:    getEnv("GRAPH_BASE_URL", DefaultGraphBaseURL),

		MetricsUsername: getEnv("METRICS_USERNAME", "prometheus"),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),

		SentryDSN:         getEnv("SENTRY_DSN", ""),
		SentryEnvironment: getEnv("SENTRY_ENVIRONMENT", "production"),

		Port:            getEnv("PORT", "3000"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", GracefulShutdown),

		Bot: BotConfig{
			HumanPauseWindow: getDurationEnv("HUMAN_PAUSE_WINDOW", DefaultHumanPauseWindow),
			FallbackCooldown: getDurationEnv("FALLBACK_COOLDOWN", DefaultFallbackCooldown),

			SendTimeout:    getDurationEnv("SEND_TIMEOUT", SendAttempt),
			SendRetries:    getIntEnv("SEND_RETRIES", 3),
			SendRetryDelay: getDurationEnv("SEND_RETRY_DELAY", SendRetryBase),

			SenderRateLimitBurst:     getFloatEnv("SENDER_RATE_LIMIT_BURST", 10.0),
			SenderRateLimitPerSecond: getFloatEnv("SENDER_RATE_LIMIT_PER_SEC", 0.5), // 1 per 2s

			MaxEventsPerWebhook: getIntEnv("MAX_EVENTS_PER_WEBHOOK", 100),
		},
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	var errs []error

	if c.PageAccessToken == "" {
		errs = append(errs, errors.New("PAGE_ACCESS_TOKEN is required"))
	}
	if c.VerifyToken == "" {
		errs = append(errs, errors.New("VERIFY_TOKEN is required"))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	if c.GraphBaseURL == "" {
		errs = append(errs, errors.New("GRAPH_BASE_URL is required"))
	}
	if err := c.Bot.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("bot config: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks bot configuration bounds
func (c *BotConfig) Validate() error {
	var errs []error

	if c.HumanPauseWindow <= 0 {
		errs = append(errs, fmt.Errorf("HUMAN_PAUSE_WINDOW must be positive, got %v", c.HumanPauseWindow))
	}
	if c.FallbackCooldown <= 0 {
		errs = append(errs, fmt.Errorf("FALLBACK_COOLDOWN must be positive, got %v", c.FallbackCooldown))
	}
	if c.SendTimeout <= 0 {
		errs = append(errs, fmt.Errorf("SEND_TIMEOUT must be positive, got %v", c.SendTimeout))
	}
	if c.SendRetries < 0 {
		errs = append(errs, fmt.Errorf("SEND_RETRIES cannot be negative, got %d", c.SendRetries))
	}
	if c.SendRetryDelay <= 0 {
		errs = append(errs, fmt.Errorf("SEND_RETRY_DELAY must be positive, got %v", c.SendRetryDelay))
	}
	if c.SenderRateLimitBurst <= 0 {
		errs = append(errs, fmt.Errorf("SENDER_RATE_LIMIT_BURST must be positive, got %v", c.SenderRateLimitBurst))
	}
	if c.SenderRateLimitPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("SENDER_RATE_LIMIT_PER_SEC must be positive, got %v", c.SenderRateLimitPerSecond))
	}
	if c.MaxEventsPerWebhook <= 0 {
		errs = append(errs, fmt.Errorf("MAX_EVENTS_PER_WEBHOOK must be positive, got %d", c.MaxEventsPerWebhook))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
