package internal

import (
	"context"
	"sync"
)

// Slot is a single-occupancy cancellation slot implementing the
// "last request wins" rule: acquiring it cancels whatever operation held it
// before. The zero value is ready to use.
type Slot struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

// Acquire cancels the previous holder and returns a fresh child context of
// parent for the new operation.
func (s *Slot) Acquire(parent context.Context) (context.Context, context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	return ctx, cancel
}

// Drain cancels the current holder, if any, leaving the slot empty.
func (s *Slot) Drain() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
