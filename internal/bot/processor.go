package bot

import (
	"context"
	"sync"
	"time"

	domerrors "github.com/horizonjapan/crewbot/internal/errors"
	"github.com/horizonjapan/crewbot/internal/logger"
	"github.com/horizonjapan/crewbot/internal/messenger"
	"github.com/horizonjapan/crewbot/internal/metrics"
	"github.com/horizonjapan/crewbot/internal/ratelimit"
)

// Event type labels for metrics.
const (
	eventTypeMessage       = "message"
	eventTypeQuickReply    = "quick_reply"
	eventTypePostback      = "postback"
	eventTypeThreadControl = "thread_control"
)

// Processor is the event router: it demultiplexes inbound webhook events
// and runs them through the handoff gate, the classifier or the step
// machine, and the response dispatcher.
type Processor struct {
	gate       *Gate
	store      *Store
	dispatcher *Dispatcher
	limiter    *ratelimit.PerKeyLimiter // Optional per-sender anti-spam limiter
	logger     *logger.Logger
	metrics    *metrics.Metrics // Optional

	senderLocks keyedMutex
	clock       func() time.Time
}

// ProcessorConfig holds configuration for creating a new Processor.
type ProcessorConfig struct {
	Gate       *Gate
	Store      *Store
	Dispatcher *Dispatcher
	Limiter    *ratelimit.PerKeyLimiter
	Logger     *logger.Logger
	Metrics    *metrics.Metrics
}

// NewProcessor creates a new event router.
func NewProcessor(cfg ProcessorConfig) *Processor {
	return &Processor{
		gate:       cfg.Gate,
		store:      cfg.Store,
		dispatcher: cfg.Dispatcher,
		limiter:    cfg.Limiter,
		logger:     cfg.Logger.WithModule("router"),
		metrics:    cfg.Metrics,
		clock:      time.Now,
	}
}

// ProcessEvent routes a single webhook event. Failures are contained
// per-event: an error return is for accounting only and never propagates
// to the platform or to other senders.
func (p *Processor) ProcessEvent(ctx context.Context, ev *messenger.Event) error {
	start := p.clock()

	senderID := ev.Sender.ID
	if senderID == "" {
		p.logger.Warn("Skipping event: missing sender id")
		p.record(eventTypeMessage, "skipped", start)
		return domerrors.ErrMissingSender
	}

	log := p.logger.WithSender(senderID)

	// Read-modify-write sequences on one sender's state must be linearized.
	unlock := p.senderLocks.Lock(senderID)
	defer unlock()

	eventType := classifyEventType(ev)
	now := p.clock()

	if ev.PassThreadControl != nil || ev.TakeThreadControl != nil {
		// Pure state transition, never a reply trigger.
		suppressed, reason := p.gate.Evaluate(senderID, ev, now)
		if suppressed && reason != ReasonNone && p.metrics != nil {
			p.metrics.RecordSuppressed(reason)
		}
		log.WithField("human_controlled", p.store.IsHumanControlled(senderID)).
			Info("Thread control changed")
		p.record(eventType, "success", start)
		return nil
	}

	if p.limiter != nil && !p.limiter.Allow(senderID) {
		log.Debug("Event dropped by rate limiter")
		p.record(eventType, "skipped", start)
		return domerrors.ErrRateLimitExceeded
	}

	if suppressed, reason := p.gate.Evaluate(senderID, ev, now); suppressed {
		if reason != ReasonNone && p.metrics != nil {
			p.metrics.RecordSuppressed(reason)
		}
		log.WithField("reason", reason).Debug("Event suppressed by handoff gate")
		p.record(eventType, "skipped", start)
		return nil
	}

	switch {
	case ev.Message != nil && ev.Message.QuickReply != nil:
		p.handleToken(ctx, log, senderID, ev.Message.QuickReply.Payload)
	case ev.Postback != nil:
		p.handlePostback(ctx, log, senderID, ev.Postback.Payload)
	case ev.Message != nil && ev.Message.Text != "":
		p.handleText(ctx, log, senderID, ev.Message.Text, now)
	default:
		// Attachment-only or otherwise empty message; nothing to route.
		log.Debug("Ignoring event without routable content")
	}

	p.record(eventType, "success", start)
	return nil
}

// handleToken advances the quick-reply funnel for a payload token.
// Unknown tokens are a log-worthy anomaly, not an error.
func (p *Processor) handleToken(ctx context.Context, log *logger.Logger, senderID, token string) {
	msg, ok := Advance(token)
	if !ok {
		log.WithField("payload", token).Warn("Unknown payload token")
		return
	}

	p.store.SetLastStep(senderID, StepName(token))
	log.WithField("payload", token).WithField("step", StepName(token)).Debug("Funnel advanced")
	p.dispatcher.Send(ctx, senderID, msg)
}

// handlePostback interprets postbacks in the shared token namespace;
// GET_STARTED is the postback-only welcome trigger.
func (p *Processor) handlePostback(ctx context.Context, log *logger.Logger, senderID, payload string) {
	if payload == TokenGetStarted {
		log.Info("New conversation started")
		p.dispatcher.Send(ctx, senderID, Welcome())
		return
	}
	p.handleToken(ctx, log, senderID, payload)
}

// handleText classifies free text and dispatches the matching canned
// reply, falling back to the cooldown-gated catch-all.
func (p *Processor) handleText(ctx context.Context, log *logger.Logger, senderID, text string, now time.Time) {
	intent := Classify(text)
	if p.metrics != nil {
		p.metrics.RecordIntent(string(intent))
	}

	if intent == IntentNone {
		p.dispatcher.SendFallback(ctx, senderID, now)
		return
	}

	log.WithField("intent", string(intent)).Debug("Intent matched")
	p.dispatcher.Send(ctx, senderID, IntentMessage(intent))
}

// record reports event metrics when a recorder is configured.
func (p *Processor) record(eventType, status string, start time.Time) {
	if p.metrics == nil {
		return
	}
	p.metrics.RecordEvent(eventType, status, p.clock().Sub(start).Seconds())
}

// classifyEventType labels an event for metrics.
func classifyEventType(ev *messenger.Event) string {
	switch {
	case ev.PassThreadControl != nil || ev.TakeThreadControl != nil:
		return eventTypeThreadControl
	case ev.Message != nil && ev.Message.QuickReply != nil:
		return eventTypeQuickReply
	case ev.Postback != nil:
		return eventTypePostback
	default:
		return eventTypeMessage
	}
}

// keyedMutex provides one mutex per key. Entries are tiny and senders are
// few relative to process lifetime; the map is not evicted.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Lock acquires the mutex for a key and returns its unlock function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
