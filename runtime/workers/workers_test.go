package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type countingRefresher struct {
	calls atomic.Int32
}

func (r *countingRefresher) Refresh(ctx context.Context) error {
	r.calls.Add(1)
	return nil
}

type countingSweeper struct {
	calls atomic.Int32
}

func (s *countingSweeper) Sweep(now time.Time) int {
	s.calls.Add(1)
	return 1
}

type countingPoller struct {
	calls atomic.Int32
}

func (p *countingPoller) PollPresence(ctx context.Context) error {
	p.calls.Add(1)
	return nil
}

func TestRefreshWorker_TicksUntilCancelled(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	target := &countingRefresher{}
	worker := NewRefreshWorker(log, target, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	require.Eventually(t, func() bool {
		return target.calls.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		req.ErrorIs(err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("refresh worker did not stop on cancel")
	}
}

func TestBackstopWorker_TicksUntilCancelled(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	target := &countingRefresher{}
	worker := NewBackstopWorker(log, target, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	require.Eventually(t, func() bool {
		return target.calls.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	req.ErrorIs(<-done, context.Canceled)
}

func TestSweepWorker_TicksUntilCancelled(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	target := &countingSweeper{}
	worker := NewSweepWorker(log, target, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	require.Eventually(t, func() bool {
		return target.calls.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	req.ErrorIs(<-done, context.Canceled)
}

func TestPresenceWorker_PollsImmediatelyThenOnInterval(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	target := &countingPoller{}
	worker := NewPresenceWorker(log, target, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	// With an hour-long interval only the immediate poll can account
	// for this call.
	require.Eventually(t, func() bool {
		return target.calls.Load() == 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	req.ErrorIs(<-done, context.Canceled)
}
