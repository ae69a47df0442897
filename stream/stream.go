// Package stream owns one room's message timeline: history fetches and
// pagination, sends with their upload round-trip, and the local mutation
// primitives the reconciliation layer drives.
package stream

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"chat-sync/contract"
	"chat-sync/domain"
	apperr "chat-sync/errors"
	"chat-sync/internal"
	"chat-sync/observability"
	"chat-sync/projection"
)

// Stream is parameterized by the currently selected room id; an empty id
// means no stream, and every operation is a no-op then. All timeline access
// is serialized by one mutex; mutations never suspend.
type Stream struct {
	mu    sync.Mutex
	log   *slog.Logger
	api   contract.MessageAPI
	stats *observability.Stats
	self  domain.Identity
	limit int

	refreshSlot internal.Slot
	uploadSlot  internal.Slot

	scopeCtx    context.Context
	scopeCancel context.CancelFunc

	roomID      string
	timeline    *projection.Timeline
	pagination  domain.Pagination
	loadingMore bool
	lastErr     error
}

func NewStream(log *slog.Logger, api contract.MessageAPI, self domain.Identity,
	limit int, stats *observability.Stats) *Stream {
	return &Stream{
		log:      log,
		api:      api,
		stats:    stats,
		self:     self,
		limit:    limit,
		timeline: projection.NewTimeline(),
	}
}

// SetRoom retargets the stream. Any in-flight fetch or upload for the
// previous room is cancelled, the previous scope context is cancelled so
// pagination fetches riding it abort too, and the timeline starts empty.
func (s *Stream) SetRoom(roomID string) {
	s.refreshSlot.Drain()
	s.uploadSlot.Drain()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scopeCancel != nil {
		s.scopeCancel()
		s.scopeCtx, s.scopeCancel = nil, nil
	}
	if roomID != "" {
		s.scopeCtx, s.scopeCancel = context.WithCancel(context.Background())
	}
	s.roomID = roomID
	s.timeline = projection.NewTimeline()
	s.pagination = domain.Pagination{}
	s.loadingMore = false
	s.lastErr = nil
}

// Refresh fetches page 1 and replaces the timeline with it. Page-1 fetches
// are mutually cancelling: a newer one supersedes an older one, and a
// superseded result is discarded without touching state. Temporary-id
// entries survive the replacement; a pending send must stay visible until
// it confirms or fails.
func (s *Stream) Refresh(ctx context.Context) error {
	s.mu.Lock()
	roomID := s.roomID
	s.mu.Unlock()
	if roomID == "" {
		return nil
	}

	fetchCtx, cancel := s.refreshSlot.Acquire(ctx)
	defer cancel()

	s.stats.IncrMessageFetches()
	msgs, pagination, err := s.api.Messages(fetchCtx, roomID, 1, s.limit)

	s.mu.Lock()
	defer s.mu.Unlock()

	if fetchCtx.Err() != nil || s.roomID != roomID {
		s.stats.IncrCancelledFetches()
		return nil
	}
	if err != nil {
		s.lastErr = err
		return err
	}

	var pending []domain.Message
	for _, msg := range s.timeline.Messages() {
		if msg.ID.IsTemporary() {
			pending = append(pending, msg)
		}
	}
	s.timeline.Replace(msgs)
	for _, msg := range pending {
		s.timeline.Insert(msg)
	}

	s.pagination = pagination
	s.lastErr = nil
	return nil
}

// LoadMore fetches the next older page and folds it in front of the current
// entries. It is a no-op when no older page exists and returns
// ErrFetchInProgress while another LoadMore runs. The fetch rides the room
// scope context rather than the page-1 slot: loading history must not be
// clobbered by a concurrent backstop poll, but a room switch still aborts it.
func (s *Stream) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	if s.roomID == "" || !s.pagination.HasMore() {
		s.mu.Unlock()
		return nil
	}
	if s.loadingMore {
		s.mu.Unlock()
		return apperr.ErrFetchInProgress
	}
	s.loadingMore = true
	roomID := s.roomID
	page := s.pagination.Page + 1
	scope := s.scopeCtx
	s.mu.Unlock()

	fetchCtx, cancel := context.WithCancel(scope)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	s.stats.IncrMessageFetches()
	msgs, pagination, err := s.api.Messages(fetchCtx, roomID, page, s.limit)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadingMore = false

	if fetchCtx.Err() != nil || s.roomID != roomID {
		s.stats.IncrCancelledFetches()
		return nil
	}
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.lastErr = err
		}
		return err
	}
	for _, msg := range msgs {
		s.timeline.Insert(msg)
	}
	s.pagination = pagination
	return nil
}

// Send uploads the attachment if any, posts the message, and reconciles the
// confirmed record against the optimistic entry. On any failure the
// temporary message stays in place; the stream never retries on its own.
func (s *Stream) Send(ctx context.Context, cmd domain.SendCommand) (domain.Message, error) {
	s.mu.Lock()
	roomID := s.roomID
	s.mu.Unlock()
	if roomID == "" {
		return domain.Message{}, apperr.ErrNoRoomSelected
	}

	req := domain.PostMessageRequest{
		RoomID:  roomID,
		Content: cmd.Content,
		Type:    cmd.Type,
		ReplyTo: cmd.ReplyTo,
	}
	if req.Type == "" {
		req.Type = domain.MessageText
	}

	if cmd.File != nil {
		uploadCtx, cancel := s.uploadSlot.Acquire(ctx)
		attachment, err := s.api.Upload(uploadCtx, *cmd.File)
		cancel()
		if err != nil {
			s.fail(err)
			return domain.Message{}, err
		}
		req.Type = domain.MessageFile
		req.FileURL = attachment.URL
		req.FileName = attachment.Name
		req.FileSize = attachment.Size
	}

	confirmed, err := s.api.PostMessage(ctx, req)
	if err != nil {
		s.fail(err)
		return domain.Message{}, err
	}

	s.Confirm(s.self.UserID, cmd.Content, confirmed)
	s.stats.IncrSendsConfirmed()
	return confirmed, nil
}

func (s *Stream) fail(err error) {
	s.stats.IncrSendsFailed()
	if errors.Is(err, context.Canceled) {
		return
	}
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// AddOptimistic inserts a locally synthesized message so the sender sees it
// without waiting on the network.
func (s *Stream) AddOptimistic(msg domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roomID == "" || msg.RoomID != s.roomID {
		return
	}
	s.timeline.Insert(msg)
}

// Confirm swaps the most recent matching temporary message for the
// server-confirmed one. With no match (a realtime echo may have landed
// first) the confirmed message is inserted alone; the timeline's id
// uniqueness makes a second insert of the same server id a no-op.
func (s *Stream) Confirm(senderID, content string, confirmed domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeline.RemoveLatestTemporary(senderID, content)
	if !s.timeline.Insert(confirmed) {
		s.stats.IncrDuplicatesSeen()
	}
}

// Merge folds a server-confirmed message into the timeline, ignoring ids
// already present.
func (s *Stream) Merge(msg domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roomID == "" || msg.RoomID != s.roomID {
		return
	}
	if s.timeline.Insert(msg) {
		s.stats.IncrMessagesMerged()
	} else {
		s.stats.IncrDuplicatesSeen()
	}
}

// Update applies a partial mutation (edits, read state) in place.
func (s *Stream) Update(id domain.MessageID, apply func(*domain.Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeline.Update(id, apply)
}

// Remove deletes a message locally.
func (s *Stream) Remove(id domain.MessageID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeline.Remove(id)
}

// Messages returns the ordered timeline snapshot.
func (s *Stream) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeline.Messages()
}

// RoomID returns the currently selected room, "" when none.
func (s *Stream) RoomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

// HasMore reports whether older history pages remain.
func (s *Stream) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pagination.HasMore()
}

// Err returns the retained error from the last failed operation.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
