package workers

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Refresher re-fetches some server-owned state. Errors are retained by the
// component itself; the worker only logs them.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefreshWorker drives the room directory's background refresh cadence.
type RefreshWorker struct {
	log      *slog.Logger
	target   Refresher
	interval time.Duration
}

func NewRefreshWorker(log *slog.Logger, target Refresher, interval time.Duration) *RefreshWorker {
	return &RefreshWorker{log: log, target: target, interval: interval}
}

func (w *RefreshWorker) Run(ctx context.Context) error {
	w.log.Info("Starting directory refresh worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.target.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.log.Warn("Directory refresh failed, keeping stale list", "err", err)
			}
		}
	}
}
