package workers

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// BackstopWorker re-fetches page 1 of the selected room's history on a fixed
// cadence. It runs whether or not the push channel is healthy: missed push
// events are caught here instead of being required.
type BackstopWorker struct {
	log      *slog.Logger
	target   Refresher
	interval time.Duration
}

func NewBackstopWorker(log *slog.Logger, target Refresher, interval time.Duration) *BackstopWorker {
	return &BackstopWorker{log: log, target: target, interval: interval}
}

func (w *BackstopWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.target.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.log.Warn("Message backstop poll failed", "err", err)
			}
		}
	}
}
