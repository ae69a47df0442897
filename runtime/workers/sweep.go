package workers

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper expires stale entries against a reference time.
type Sweeper interface {
	Sweep(now time.Time) int
}

// SweepWorker runs the typing-indicator TTL sweep once per interval,
// independent of event arrival.
type SweepWorker struct {
	log      *slog.Logger
	target   Sweeper
	interval time.Duration
}

func NewSweepWorker(log *slog.Logger, target Sweeper, interval time.Duration) *SweepWorker {
	return &SweepWorker{log: log, target: target, interval: interval}
}

func (w *SweepWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if expired := w.target.Sweep(time.Now()); expired > 0 {
				w.log.Debug("Typing indicators expired", "count", expired)
			}
		}
	}
}
