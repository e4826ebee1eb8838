// Package webhook provides the Messenger webhook endpoints: subscription
// verification, signature checking and asynchronous event dispatch to the
// conversation engine.
package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/horizonjapan/crewbot/internal/bot"
	"github.com/horizonjapan/crewbot/internal/config"
	"github.com/horizonjapan/crewbot/internal/ctxutil"
	"github.com/horizonjapan/crewbot/internal/logger"
	"github.com/horizonjapan/crewbot/internal/messenger"
	"github.com/horizonjapan/crewbot/internal/metrics"
)

// maxBodyBytes caps the webhook request body size.
const maxBodyBytes = 1 << 20 // 1 MiB

// Handler handles Messenger webhook requests.
type Handler struct {
	verifyToken string
	appSecret   string
	metrics     *metrics.Metrics
	logger      *logger.Logger
	processor   *bot.Processor
	wg          sync.WaitGroup // WaitGroup for async event processing

	maxEventsPerWebhook int
}

// HandlerConfig holds configuration for creating a new Handler.
type HandlerConfig struct {
	VerifyToken string
	AppSecret   string
	BotConfig   *config.BotConfig
	Metrics     *metrics.Metrics
	Logger      *logger.Logger
	Processor   *bot.Processor
}

// NewHandler creates a new webhook handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		verifyToken:         cfg.VerifyToken,
		appSecret:           cfg.AppSecret,
		metrics:             cfg.Metrics,
		logger:              cfg.Logger.WithModule("webhook"),
		processor:           cfg.Processor,
		maxEventsPerWebhook: cfg.BotConfig.MaxEventsPerWebhook,
	}
}

// HandleVerify is the Gin handler for GET /webhook: the Meta subscription
// handshake. Echoes hub.challenge when the verify token matches.
func (h *Handler) HandleVerify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "" || token == "" {
		c.Status(http.StatusForbidden)
		return
	}

	if mode != "subscribe" || token != h.verifyToken {
		h.logger.Warn("Webhook verification failed: token mismatch")
		c.Status(http.StatusForbidden)
		return
	}

	h.logger.Info("Webhook verified")
	c.String(http.StatusOK, challenge)
}

// HandleEvents is the Gin handler for POST /webhook. It acknowledges the
// delivery immediately (Meta retries on anything but a fast 200) and
// processes the events asynchronously.
func (h *Handler) HandleEvents(c *gin.Context) {
	// 1. Read and authenticate the raw body
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		h.logger.WithError(err).Error("Failed to read webhook body")
		c.Status(http.StatusInternalServerError)
		return
	}

	if h.appSecret != "" {
		signature := c.GetHeader("X-Hub-Signature-256")
		if !messenger.VerifySignature(h.appSecret, signature, body) {
			h.logger.Warn("Invalid webhook signature")
			c.Status(http.StatusForbidden)
			return
		}
	}

	// 2. Parse request
	var payload messenger.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.WithError(err).Error("Failed to parse webhook payload")
		c.Status(http.StatusBadRequest)
		return
	}

	if payload.Object != "page" {
		c.Status(http.StatusNotFound)
		return
	}

	// 3. Return 200 OK immediately (Meta requirement)
	c.String(http.StatusOK, "EVENT_RECEIVED")

	start := time.Now()
	if h.metrics != nil {
		h.metrics.RecordEvent("batch", "received", 0)
	}

	events := flattenEvents(payload.Entry)

	if len(events) > h.maxEventsPerWebhook {
		h.logger.WithField("event_count", len(events)).
			WithField("limit", h.maxEventsPerWebhook).
			Warn("Too many events in webhook batch; truncating")
		events = events[:h.maxEventsPerWebhook]
	}

	// 4. Process events asynchronously
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				h.logger.WithField("panic", r).Error("Panic in async event processing")
			}
		}()

		processingCtx := context.Background()
		for i := range events {
			h.processEvent(processingCtx, &events[i], start)
		}
	}()
}

// processEvent routes a single event through the conversation engine.
func (h *Handler) processEvent(ctx context.Context, ev *messenger.Event, batchStart time.Time) {
	requestID := uuid.NewString()
	ctx = ctxutil.WithRequestID(ctx, requestID)
	if ev.Sender.ID != "" {
		ctx = ctxutil.WithSenderID(ctx, ev.Sender.ID)
	}

	log := h.logger.WithRequestID(requestID)
	if ev.Timestamp > 0 {
		log = log.WithField("event_timestamp_ms", ev.Timestamp)
	}

	eventStart := time.Now()
	if err := h.processor.ProcessEvent(ctx, ev); err != nil {
		log.WithError(err).Debug("Event not processed")
		return
	}

	log.WithField("event_duration_ms", time.Since(eventStart).Milliseconds()).
		WithField("batch_duration_ms", time.Since(batchStart).Milliseconds()).
		Info("Event processed")
}

// flattenEvents collects the messaging events of all page entries in
// delivery order.
func flattenEvents(entries []messenger.Entry) []messenger.Event {
	var events []messenger.Event
	for _, entry := range entries {
		events = append(events, entry.Messaging...)
	}
	return events
}

// Shutdown waits for all async event processing to complete.
// It returns an error if the context is canceled before completion.
func (h *Handler) Shutdown(ctx context.Context) error {
	c := make(chan struct{})
	go func() {
		defer close(c)
		h.wg.Wait()
	}()

	select {
	case <-c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
