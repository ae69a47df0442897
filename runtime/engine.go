// Package runtime owns the engine lifecycle: one logical owner per room
// selection coordinating the directory poll, the message backstop poll, the
// realtime channel, and the reconciliation glue between them.
package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"chat-sync/directory"
	"chat-sync/domain"
	"chat-sync/realtime"
	"chat-sync/reconcile"
	"chat-sync/runtime/workers"
	"chat-sync/stream"
)

const restartDelay = 200 * time.Millisecond

// Engine wires the components together and exposes OnRoomChange as the
// single trigger that tears down the previous room's scope (timers, socket,
// in-flight fetches) before building the new one.
type Engine struct {
	mu         sync.Mutex
	log        *slog.Logger
	directory  *directory.Directory
	stream     *stream.Stream
	channel    *realtime.Channel
	reconciler *reconcile.Engine
	supervisor *workers.Supervisor

	refreshInterval  time.Duration
	backstopInterval time.Duration

	baseCtx    context.Context
	roomID     string
	roomCancel context.CancelFunc
}

func NewEngine(log *slog.Logger, dir *directory.Directory, str *stream.Stream,
	channel *realtime.Channel, reconciler *reconcile.Engine,
	refreshInterval, backstopInterval time.Duration) *Engine {
	return &Engine{
		log:              log,
		directory:        dir,
		stream:           str,
		channel:          channel,
		reconciler:       reconciler,
		supervisor:       workers.NewSupervisor(log, restartDelay),
		refreshInterval:  refreshInterval,
		backstopInterval: backstopInterval,
	}
}

// Start launches the room-directory cadence and primes its first fetch. The
// engine runs until ctx is cancelled or Stop is called.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	e.baseCtx = ctx
	e.mu.Unlock()

	e.supervisor.Add(workers.NewRefreshWorker(e.log, e.directory, e.refreshInterval))
	go e.supervisor.Run(ctx)

	// First room list without waiting a full interval.
	go func() { _ = e.directory.Refresh(ctx) }()
}

// OnRoomChange retargets the engine. Selecting the already-selected room is
// a no-op; selecting "" deselects, leaving zero timers and a closed socket.
func (e *Engine) OnRoomChange(roomID string) {
	e.mu.Lock()
	if roomID == e.roomID {
		e.mu.Unlock()
		return
	}

	// Previous scope first: cancel outstanding work before acquiring new.
	if e.roomCancel != nil {
		e.roomCancel()
		e.roomCancel = nil
	}
	e.channel.Close()
	e.stream.SetRoom(roomID)
	e.roomID = roomID

	if roomID == "" {
		e.mu.Unlock()
		return
	}

	base := e.baseCtx
	if base == nil {
		// Room selected before Start; scope it to the process instead.
		base = context.Background()
	}
	roomCtx, cancel := context.WithCancel(base)
	e.roomCancel = cancel
	e.mu.Unlock()

	go func() { _ = e.stream.Refresh(roomCtx) }()
	e.supervisor.Start(roomCtx, workers.NewBackstopWorker(e.log, e.stream, e.backstopInterval))
	go func() { _ = e.channel.Connect(roomCtx, roomID) }()
}

// Stop deselects the room and shuts everything down.
func (e *Engine) Stop() {
	e.OnRoomChange("")
	e.supervisor.Stop()
	e.directory.Close()
	e.log.Info("Engine stopped")
}

// Send posts a message through the reconciliation flow for the selected room.
func (e *Engine) Send(ctx context.Context, cmd domain.SendCommand) (domain.Message, error) {
	return e.reconciler.Send(ctx, cmd)
}

// RoomID returns the selected room, "" when none.
func (e *Engine) RoomID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.roomID
}

func (e *Engine) Directory() *directory.Directory { return e.directory }

func (e *Engine) Stream() *stream.Stream { return e.stream }

func (e *Engine) Channel() *realtime.Channel { return e.channel }
