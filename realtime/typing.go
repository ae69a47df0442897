package realtime

import (
	"sync"
	"time"

	"chat-sync/domain"
)

// TypingRegistry holds the remote typing indicators for the selected room,
// keyed by user id. Entries live until an explicit isTyping=false event or
// until the TTL sweep catches them; a client that vanishes mid-keystroke
// must not appear to type forever.
type TypingRegistry struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]domain.TypingIndicator
}

func NewTypingRegistry(ttl time.Duration) *TypingRegistry {
	return &TypingRegistry{ttl: ttl, entries: make(map[string]domain.TypingIndicator)}
}

// Apply upserts or clears one user's indicator from an inbound typing event.
func (r *TypingRegistry) Apply(indicator domain.TypingIndicator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !indicator.IsTyping {
		delete(r.entries, indicator.UserID)
		return
	}
	r.entries[indicator.UserID] = indicator
}

// Sweep drops entries older than the TTL and returns how many expired.
func (r *TypingRegistry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	expired := 0
	for userID, entry := range r.entries {
		if now.Sub(entry.RefreshedAt) > r.ttl {
			delete(r.entries, userID)
			expired++
		}
	}
	return expired
}

// Active returns the users currently marked as typing.
func (r *TypingRegistry) Active() []domain.TypingIndicator {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.TypingIndicator, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry)
	}
	return out
}

// Reset clears everything; used on room change.
func (r *TypingRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.entries)
}
