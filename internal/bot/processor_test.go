package bot

import (
	"context"
	"testing"
	"time"

	domerrors "github.com/horizonjapan/crewbot/internal/errors"
	"github.com/horizonjapan/crewbot/internal/logger"
	"github.com/horizonjapan/crewbot/internal/messenger"
	"github.com/horizonjapan/crewbot/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type processorFixture struct {
	processor *Processor
	store     *Store
	sender    *fakeSender
	now       time.Time
}

func newProcessorFixture(t *testing.T) *processorFixture {
	t.Helper()

	store := newTestStore()
	t.Cleanup(store.Stop)

	sender := &fakeSender{}
	log := logger.New("error")
	dispatcher := NewDispatcher(sender, store, log, nil)

	f := &processorFixture{
		store:  store,
		sender: sender,
		now:    time.Now(),
	}
	f.processor = NewProcessor(ProcessorConfig{
		Gate:       NewGate(store),
		Store:      store,
		Dispatcher: dispatcher,
		Logger:     log,
	})
	f.processor.clock = func() time.Time { return f.now }
	return f
}

func (f *processorFixture) process(t *testing.T, ev *messenger.Event) {
	t.Helper()
	require.NoError(t, f.processor.ProcessEvent(context.Background(), ev))
	f.processor.dispatcher.Wait()
}

func postbackEvent(payload string) *messenger.Event {
	return &messenger.Event{
		Sender:   messenger.User{ID: "u1"},
		Postback: &messenger.Postback{Payload: payload},
	}
}

func TestProcessEventMissingSender(t *testing.T) {
	f := newProcessorFixture(t)

	ev := textEvent("msc")
	ev.Sender.ID = ""

	err := f.processor.ProcessEvent(context.Background(), ev)
	assert.ErrorIs(t, err, domerrors.ErrMissingSender)
	assert.Empty(t, f.sender.messages())
}

func TestProcessEventGetStarted(t *testing.T) {
	f := newProcessorFixture(t)

	f.process(t, postbackEvent(TokenGetStarted))

	msgs := f.sender.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].msg.Text, "Thanks for messaging us")
	require.Len(t, msgs[0].msg.QuickReplies, 4)
	assert.Equal(t, TokenMSC, msgs[0].msg.QuickReplies[0].Payload)
}

func TestProcessEventIntentRouting(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantText string
	}{
		{"msc", "MSC", "Interested in joining MSC Cruises"},
		{"apply", "応募したい", "how to apply"},
		{"job", "any jobs?", "job openings"},
		{"help", "help please", "How can I help"},
		{"pre-screening", "面談", "pre-screening appointment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newProcessorFixture(t)
			f.process(t, textEvent(tt.text))

			msgs := f.sender.messages()
			require.Len(t, msgs, 1)
			assert.Contains(t, msgs[0].msg.Text, tt.wantText)
		})
	}
}

func TestProcessEventFullFunnel(t *testing.T) {
	f := newProcessorFixture(t)

	f.process(t, textEvent("interested in msc"))
	f.process(t, quickReplyEvent(TokenMSCYes))
	f.process(t, quickReplyEvent(TokenWorkedCruiseNo))
	f.process(t, quickReplyEvent(TokenJapaneseYes))

	msgs := f.sender.messages()
	require.Len(t, msgs, 4)
	assert.Contains(t, msgs[0].msg.Text, "Interested in joining MSC Cruises")
	assert.Contains(t, msgs[1].msg.Text, "worked on a cruise ship")
	assert.Contains(t, msgs[2].msg.Text, "speak Japanese")
	assert.Contains(t, msgs[3].msg.Text, RegistrationFormURL)

	assert.Equal(t, "registration_link_sent", f.store.Snapshot("u1").LastStep)
}

func TestProcessEventEnglishBranch(t *testing.T) {
	f := newProcessorFixture(t)

	f.process(t, quickReplyEvent(TokenJapaneseNo))

	msgs := f.sender.messages()
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].msg.Attachment)
	assert.Equal(t, "button", msgs[0].msg.Attachment.Payload.TemplateType)
}

func TestProcessEventDeclineStaysSilent(t *testing.T) {
	f := newProcessorFixture(t)

	f.process(t, quickReplyEvent(TokenMSCNo))

	assert.Empty(t, f.sender.messages())
	assert.Equal(t, "declined", f.store.Snapshot("u1").LastStep)
}

func TestProcessEventUnknownToken(t *testing.T) {
	f := newProcessorFixture(t)

	f.process(t, quickReplyEvent("NOT_A_TOKEN"))
	f.process(t, postbackEvent("NOT_A_TOKEN"))

	assert.Empty(t, f.sender.messages())
}

func TestProcessEventFallbackCooldown(t *testing.T) {
	f := newProcessorFixture(t)

	f.process(t, textEvent("what's the weather"))
	require.Len(t, f.sender.messages(), 1, "first unmatched text gets the fallback")

	f.now = f.now.Add(time.Hour)
	f.process(t, textEvent("still there?"))
	assert.Len(t, f.sender.messages(), 1, "inside cooldown the bot stays silent")

	f.now = f.now.Add(12 * time.Hour)
	f.process(t, textEvent("anyone?"))
	assert.Len(t, f.sender.messages(), 2, "cooldown expired")
}

func TestProcessEventHumanKeywordPausesBot(t *testing.T) {
	f := newProcessorFixture(t)

	f.process(t, textEvent("hello"))
	assert.Empty(t, f.sender.messages(), "greeting itself gets no bot reply")

	f.now = f.now.Add(59 * time.Minute)
	f.process(t, textEvent("msc"))
	assert.Empty(t, f.sender.messages(), "inside the pause window")

	f.now = f.now.Add(2 * time.Minute)
	f.process(t, textEvent("msc"))
	require.Len(t, f.sender.messages(), 1, "window expired, bot resumes")
	assert.Contains(t, f.sender.messages()[0].msg.Text, "Interested in joining MSC Cruises")
}

func TestProcessEventThreadControl(t *testing.T) {
	f := newProcessorFixture(t)

	f.process(t, &messenger.Event{
		Sender:            messenger.User{ID: "u1"},
		PassThreadControl: &messenger.ThreadControl{NewOwnerAppID: 42},
	})

	f.process(t, textEvent("msc"))
	assert.Empty(t, f.sender.messages(), "human owns the thread")

	f.process(t, &messenger.Event{
		Sender:            messenger.User{ID: "u1"},
		TakeThreadControl: &messenger.ThreadControl{PreviousOwnerAppID: 42},
	})

	f.process(t, textEvent("msc"))
	assert.Len(t, f.sender.messages(), 1, "control returned, bot answers again")
}

func TestProcessEventRateLimited(t *testing.T) {
	f := newProcessorFixture(t)

	limiter := ratelimit.NewPerKeyLimiter(ratelimit.PerKeyLimiterConfig{
		MaxTokens:     1,
		RefillRate:    0.001,
		CleanupPeriod: time.Hour,
	})
	t.Cleanup(limiter.Stop)
	f.processor.limiter = limiter

	f.process(t, textEvent("msc"))
	require.Len(t, f.sender.messages(), 1)

	err := f.processor.ProcessEvent(context.Background(), textEvent("msc"))
	assert.ErrorIs(t, err, domerrors.ErrRateLimitExceeded)
	f.processor.dispatcher.Wait()
	assert.Len(t, f.sender.messages(), 1, "rate-limited event must not reach the classifier")
}

func TestProcessEventThreadControlBypassesRateLimit(t *testing.T) {
	f := newProcessorFixture(t)

	limiter := ratelimit.NewPerKeyLimiter(ratelimit.PerKeyLimiterConfig{
		MaxTokens:     1,
		RefillRate:    0.001,
		CleanupPeriod: time.Hour,
	})
	t.Cleanup(limiter.Stop)
	f.processor.limiter = limiter

	f.process(t, textEvent("msc"))

	// The state transition must land even when the sender is out of tokens.
	f.process(t, &messenger.Event{
		Sender:            messenger.User{ID: "u1"},
		PassThreadControl: &messenger.ThreadControl{NewOwnerAppID: 42},
	})
	assert.True(t, f.store.IsHumanControlled("u1"))
}

func TestProcessEventAttachmentOnly(t *testing.T) {
	f := newProcessorFixture(t)

	f.process(t, &messenger.Event{
		Sender:  messenger.User{ID: "u1"},
		Message: &messenger.ReceivedMessage{MID: "m1"},
	})

	assert.Empty(t, f.sender.messages())
}
