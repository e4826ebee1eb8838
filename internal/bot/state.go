package bot

import (
	"sync"
	"time"
)

// Conversation is the per-sender state tracked by the engine.
type Conversation struct {
	LastHumanKeywordAt time.Time // Last human-escalation keyword hit
	LastDefaultReplyAt time.Time // Last catch-all fallback reply
	HumanControlled    bool      // Thread control handed to a human/other app
	LastStep           string    // Last emitted funnel step, analytics only
}

// StoreConfig configures a conversation state Store.
type StoreConfig struct {
	PauseWindow    time.Duration // Rolling human-escalation suppression window
	Cooldown       time.Duration // Fallback reply cooldown
	EvictionPeriod time.Duration // How often expired entries are removed
}

// Store holds per-sender conversation state in memory. Entries are created
// lazily on first use and evicted in the background once every timer has
// expired, keeping a long-running process bounded. Safe for concurrent use;
// compound read-modify-write operations are atomic per call.
type Store struct {
	mu       sync.RWMutex
	entries  map[string]*Conversation
	config   StoreConfig
	onUpdate func(count int) // Optional callback when the entry count changes
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewStore creates a conversation state store and starts its eviction loop.
func NewStore(cfg StoreConfig) *Store {
	s := &Store{
		entries: make(map[string]*Conversation),
		config:  cfg,
		stopCh:  make(chan struct{}),
	}

	if cfg.EvictionPeriod > 0 {
		go s.evictionLoop()
	}

	return s
}

// OnUpdate sets a callback invoked when the active entry count changes.
func (s *Store) OnUpdate(fn func(count int)) {
	s.onUpdate = fn
}

// get returns the entry for a sender, creating it if absent.
// Must be called with mu held for writing.
func (s *Store) get(senderID string) *Conversation {
	c, ok := s.entries[senderID]
	if !ok {
		c = &Conversation{}
		s.entries[senderID] = c
	}
	return c
}

// MarkHumanKeyword records a human-escalation keyword hit, restarting the
// rolling suppression window.
func (s *Store) MarkHumanKeyword(senderID string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(senderID).LastHumanKeywordAt = now
}

// IsPaused reports whether the sender is inside the human-escalation
// suppression window.
func (s *Store) IsPaused(senderID string, now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.entries[senderID]
	if !ok || c.LastHumanKeywordAt.IsZero() {
		return false
	}
	return now.Sub(c.LastHumanKeywordAt) <= s.config.PauseWindow
}

// SetHumanControlled flags or clears platform-level human thread control.
func (s *Store) SetHumanControlled(senderID string, controlled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(senderID).HumanControlled = controlled
}

// IsHumanControlled reports whether a human currently owns the thread.
func (s *Store) IsHumanControlled(senderID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.entries[senderID]
	return ok && c.HumanControlled
}

// AllowFallback atomically checks the fallback cooldown and, when expired,
// resets the cooldown clock. Returns true exactly when the caller should
// send the catch-all reply.
func (s *Store) AllowFallback(senderID string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.get(senderID)
	if !c.LastDefaultReplyAt.IsZero() && now.Sub(c.LastDefaultReplyAt) <= s.config.Cooldown {
		return false
	}
	c.LastDefaultReplyAt = now
	return true
}

// SetLastStep records the last emitted funnel step for a sender.
func (s *Store) SetLastStep(senderID, step string) {
	if step == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(senderID).LastStep = step
}

// Snapshot returns a copy of the sender's state, or a zero value when the
// sender is unknown (absence is equivalent to a freshly-seen user).
func (s *Store) Snapshot(senderID string) Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.entries[senderID]; ok {
		return *c
	}
	return Conversation{}
}

// Len returns the number of tracked senders.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// expired reports whether an entry can be evicted: no human control and
// every timer outside its window.
func (s *Store) expired(c *Conversation, now time.Time) bool {
	if c.HumanControlled {
		return false
	}
	if !c.LastHumanKeywordAt.IsZero() && now.Sub(c.LastHumanKeywordAt) <= s.config.PauseWindow {
		return false
	}
	if !c.LastDefaultReplyAt.IsZero() && now.Sub(c.LastDefaultReplyAt) <= s.config.Cooldown {
		return false
	}
	return true
}

// Evict removes entries whose timers have all expired and returns the
// remaining entry count.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	for senderID, c := range s.entries {
		if s.expired(c, now) {
			delete(s.entries, senderID)
		}
	}
	count := len(s.entries)
	s.mu.Unlock()

	if s.onUpdate != nil {
		s.onUpdate(count)
	}
	return count
}

// evictionLoop periodically removes expired entries.
func (s *Store) evictionLoop() {
	ticker := time.NewTicker(s.config.EvictionPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Evict(time.Now())
		}
	}
}

// Stop gracefully stops the eviction goroutine.
// Safe to call multiple times.
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}
