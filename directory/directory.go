// Package directory owns the authoritative-on-the-client list of rooms the
// current user belongs to. The server stays the source of truth: every
// successful fetch replaces the whole list, and creation never inserts a
// room optimistically.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"

	"chat-sync/contract"
	"chat-sync/domain"
	apperr "chat-sync/errors"
	"chat-sync/internal"
	"chat-sync/observability"
)

var validate = validator.New()

// Directory caches the room list and tracks the last fetch error. A failed
// fetch never clears existing rooms: stale-but-present beats empty.
type Directory struct {
	mu      sync.RWMutex
	log     *slog.Logger
	api     contract.RoomAPI
	stats   *observability.Stats
	slot    internal.Slot
	rooms   []domain.Room
	lastErr error
}

func NewDirectory(log *slog.Logger, api contract.RoomAPI, stats *observability.Stats) *Directory {
	return &Directory{log: log, api: api, stats: stats}
}

// Refresh replaces the room list from the server. Only one fetch is ever in
// flight: acquiring the slot aborts a still-pending previous one, and a
// fetch that was itself superseded discards its result silently.
func (d *Directory) Refresh(ctx context.Context) error {
	fetchCtx, cancel := d.slot.Acquire(ctx)
	defer cancel()

	d.stats.IncrRoomFetches()
	rooms, err := d.api.Rooms(fetchCtx)

	d.mu.Lock()
	defer d.mu.Unlock()

	if fetchCtx.Err() != nil {
		d.stats.IncrCancelledFetches()
		return nil
	}
	if err != nil {
		d.lastErr = err
		return err
	}
	d.rooms = rooms
	d.lastErr = nil
	return nil
}

// Create validates and creates a room, then refreshes so the returned state
// reflects the server's ordering of the new list.
func (d *Directory) Create(ctx context.Context, cmd domain.CreateRoomCommand) (domain.Room, error) {
	if err := validate.Struct(cmd); err != nil {
		return domain.Room{}, fmt.Errorf("%w: %v", apperr.ErrInvalidCommand, err)
	}
	room, err := d.api.CreateRoom(ctx, cmd)
	if err != nil {
		d.retain(err)
		return domain.Room{}, err
	}
	if err := d.Refresh(ctx); err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

// Join registers the user in a room, best-effort. A server without a join
// endpoint answers 404; that counts as success once the list is refreshed.
func (d *Directory) Join(ctx context.Context, roomID string) error {
	err := d.api.JoinRoom(ctx, roomID)
	switch {
	case err == nil, errors.Is(err, apperr.ErrNoJoinEndpoint):
		return d.Refresh(ctx)
	default:
		d.retain(err)
		return err
	}
}

// Rooms returns a copy of the cached room list.
func (d *Directory) Rooms() []domain.Room {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.Room, len(d.rooms))
	copy(out, d.rooms)
	return out
}

// Err returns the retained error from the last failed operation, nil after
// any success.
func (d *Directory) Err() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastErr
}

// Close aborts any in-flight fetch.
func (d *Directory) Close() {
	d.slot.Drain()
}

func (d *Directory) retain(err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	d.mu.Lock()
	d.lastErr = err
	d.mu.Unlock()
}
