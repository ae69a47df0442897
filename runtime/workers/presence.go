package workers

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// PresencePoller pulls the fallback presence endpoint once.
type PresencePoller interface {
	PollPresence(ctx context.Context) error
}

// PresenceWorker is the degraded delivery path: while the socket is down it
// keeps the online set fresh by polling the room presence endpoint.
type PresenceWorker struct {
	log      *slog.Logger
	target   PresencePoller
	interval time.Duration
}

func NewPresenceWorker(log *slog.Logger, target PresencePoller, interval time.Duration) *PresenceWorker {
	return &PresenceWorker{log: log, target: target, interval: interval}
}

func (w *PresenceWorker) Run(ctx context.Context) error {
	// First poll fires immediately so a fallback activation is visible
	// within one interval.
	if err := w.target.PollPresence(ctx); err != nil && !errors.Is(err, context.Canceled) {
		w.log.Warn("Presence poll failed", "err", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.target.PollPresence(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.log.Warn("Presence poll failed", "err", err)
			}
		}
	}
}
