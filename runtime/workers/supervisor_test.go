package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"chat-sync/contract"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type countingWorker struct {
	runs    atomic.Int32
	behave  func(run int32, ctx context.Context) error
	started chan struct{}
}

func (w *countingWorker) Run(ctx context.Context) error {
	run := w.runs.Add(1)
	if w.started != nil {
		select {
		case w.started <- struct{}{}:
		default:
		}
	}
	return w.behave(run, ctx)
}

func TestSupervisor_RestartsPanickingWorker(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	supervisor := NewSupervisor(log, 10*time.Millisecond)

	done := make(chan struct{})
	worker := &countingWorker{}
	worker.behave = func(run int32, ctx context.Context) error {
		if run == 1 {
			panic("first run blows up")
		}
		close(done)
		return nil
	}

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		supervisor.Add(worker).Run(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker was never restarted after the panic")
	}

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not drain after the worker finished")
	}
	req.Equal(int32(2), worker.runs.Load())
}

func TestSupervisor_StopCancelsRunningWorkers(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	supervisor := NewSupervisor(log, 10*time.Millisecond)

	worker := &countingWorker{started: make(chan struct{}, 1)}
	worker.behave = func(run int32, ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		supervisor.Add(worker).Run(context.Background())
	}()

	<-worker.started
	supervisor.Stop()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not unwind after Stop")
	}
	req.Equal(int32(1), worker.runs.Load())
}

func TestSupervisor_CleanFinishIsNotRestarted(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	supervisor := NewSupervisor(log, time.Millisecond)

	worker := &countingWorker{}
	worker.behave = func(run int32, ctx context.Context) error { return nil }

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		supervisor.Add(worker).Run(context.Background())
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not finish with a clean worker")
	}
	req.Equal(int32(1), worker.runs.Load())
}

func TestGetWorkerName(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	req.Equal("countingWorker", contract.GetWorkerName(&countingWorker{}))
	req.Equal("SweepWorker", contract.GetWorkerName(NewSweepWorker(log, nil, time.Second)))
	req.Equal("NilWorker", contract.GetWorkerName(nil))
}
