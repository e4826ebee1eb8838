package bot

import (
	"strings"
	"time"

	"github.com/horizonjapan/crewbot/internal/messenger"
)

// Suppression reasons reported by the gate, used as metric labels.
const (
	ReasonNone            = ""
	ReasonHumanControlled = "human_controlled"
	ReasonHumanKeyword    = "human_keyword"
	ReasonPauseWindow     = "pause_window"
)

// humanKeywords are greetings that signal the user wants a human: the bot
// goes silent and lets an agent pick the thread up. Case-insensitive
// substring match after width folding.
var humanKeywords = []string{
	"hello",
	"hi",
	"good day",
	"konnichiwa",
	"こんにちは",
	"こんばんは",
	"おはよう",
}

// MatchesHumanKeyword reports whether free text contains a human-escalation
// keyword. Pure.
func MatchesHumanKeyword(text string) bool {
	normalized := NormalizeText(text)
	if normalized == "" {
		return false
	}
	for _, keyword := range humanKeywords {
		if strings.Contains(normalized, keyword) {
			return true
		}
	}
	return false
}

// Gate decides, ahead of everything else, whether the bot is suppressed
// for a sender: explicit thread-control handoff, or a rolling
// human-escalation pause window.
type Gate struct {
	store *Store
}

// NewGate creates a handoff gate over the given state store.
func NewGate(store *Store) *Gate {
	return &Gate{store: store}
}

// Evaluate applies the gate to an event and returns whether the bot must
// stay silent, with the suppression reason for accounting. Mutates state
// for thread-control changes and keyword hits only.
//
// Thread-control events are pure state transitions: control passed to a
// human suppresses until a control-returned event, and the return itself
// is silent.
func (g *Gate) Evaluate(senderID string, ev *messenger.Event, now time.Time) (bool, string) {
	if ev.PassThreadControl != nil {
		g.store.SetHumanControlled(senderID, true)
		return true, ReasonHumanControlled
	}
	if ev.TakeThreadControl != nil {
		g.store.SetHumanControlled(senderID, false)
		return true, ReasonNone // silent, but nothing further to do for this event
	}

	if g.store.IsHumanControlled(senderID) {
		return true, ReasonHumanControlled
	}

	if ev.Message != nil && ev.Message.QuickReply == nil && MatchesHumanKeyword(ev.Message.Text) {
		g.store.MarkHumanKeyword(senderID, now)
		return true, ReasonHumanKeyword
	}

	if g.store.IsPaused(senderID, now) {
		return true, ReasonPauseWindow
	}

	return false, ReasonNone
}
