package bot

import (
	"context"
	"sync"
	"time"

	"github.com/horizonjapan/crewbot/internal/logger"
	"github.com/horizonjapan/crewbot/internal/messenger"
	"github.com/horizonjapan/crewbot/internal/metrics"
)

// Suppression reason for the cooldown-gated fallback, used as metric label.
const ReasonFallbackCooldown = "fallback_cooldown"

// Sender delivers outbound messages. Implemented by messenger.Client.
type Sender interface {
	Send(ctx context.Context, recipientID string, msg *messenger.Message) error
}

// Dispatcher forwards canned payloads to the outbound sender.
// Delivery is fire-and-forget: event processing never blocks on delivery
// confirmation, and a failed delivery (after the sender's own retries) is
// logged without affecting other senders.
type Dispatcher struct {
	sender  Sender
	store   *Store
	logger  *logger.Logger
	metrics *metrics.Metrics // Optional
	wg      sync.WaitGroup
}

// NewDispatcher creates a response dispatcher.
func NewDispatcher(sender Sender, store *Store, log *logger.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		sender:  sender,
		store:   store,
		logger:  log.WithModule("dispatcher"),
		metrics: m,
	}
}

// Send delivers a message asynchronously. The delivery outlives the
// inbound event's context; cancellation of the webhook request must not
// cancel an in-flight send.
func (d *Dispatcher) Send(ctx context.Context, senderID string, msg *messenger.Message) {
	if msg == nil {
		return
	}

	sendCtx := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.WithField("panic", r).Error("Panic in outbound send")
			}
		}()

		if err := d.sender.Send(sendCtx, senderID, msg); err != nil {
			d.logger.WithError(err).WithSender(senderID).Error("Failed to deliver message")
		}
	}()
}

// SendFallback delivers the catch-all reply if the sender's cooldown has
// expired, resetting the cooldown clock. Suppressed sends are silent.
// Returns whether a message was dispatched.
func (d *Dispatcher) SendFallback(ctx context.Context, senderID string, now time.Time) bool {
	if !d.store.AllowFallback(senderID, now) {
		if d.metrics != nil {
			d.metrics.RecordSuppressed(ReasonFallbackCooldown)
		}
		d.logger.WithSender(senderID).Debug("Fallback suppressed by cooldown")
		return false
	}

	d.Send(ctx, senderID, Fallback())
	return true
}

// Wait blocks until all in-flight deliveries have completed.
// Used for graceful shutdown and tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
