// Package reconcile merges optimistic local sends, send confirmations, and
// realtime pushes into one timeline without duplication or reordering.
package reconcile

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"chat-sync/contract"
	"chat-sync/domain"
)

// Sender is the stream surface the engine drives: the mutation primitives
// plus the network send.
type Sender interface {
	contract.StreamMutator
	Send(ctx context.Context, cmd domain.SendCommand) (domain.Message, error)
}

// Engine implements the reconciliation algorithm. Temporary ids come from a
// monotonically increasing local counter, so a message is optimistic or
// confirmed by construction, never by string inspection.
type Engine struct {
	log    *slog.Logger
	stream Sender
	self   domain.Identity
	seq    atomic.Uint64
}

func NewEngine(log *slog.Logger, stream Sender, self domain.Identity) *Engine {
	return &Engine{log: log, stream: stream, self: self}
}

// Send inserts an optimistic record immediately, then runs the network send.
// On failure the temporary message is returned along with the error; it
// stays in the timeline so the caller can surface a visibly-failed send.
func (e *Engine) Send(ctx context.Context, cmd domain.SendCommand) (domain.Message, error) {
	temp := e.synthesize(cmd)
	e.stream.AddOptimistic(temp)

	confirmed, err := e.stream.Send(ctx, cmd)
	if err != nil {
		return temp, err
	}
	return confirmed, nil
}

// OnInbound folds a realtime-pushed message into the stream. Messages for
// another room are dropped; duplicates of an already-reconciled send are
// rejected by the timeline's id uniqueness.
func (e *Engine) OnInbound(msg domain.Message) {
	if msg.RoomID != e.stream.RoomID() {
		e.log.Debug("Dropping message for unselected room", "room", msg.RoomID)
		return
	}
	e.stream.Merge(msg)
}

func (e *Engine) synthesize(cmd domain.SendCommand) domain.Message {
	msg := domain.Message{
		ID:           domain.TemporaryID(e.seq.Add(1)),
		RoomID:       e.stream.RoomID(),
		SenderID:     e.self.UserID,
		SenderName:   e.self.UserName,
		SenderAvatar: e.self.AvatarURL,
		Type:         cmd.Type,
		Content:      cmd.Content,
		ReplyTo:      cmd.ReplyTo,
		CreatedAt:    time.Now().UTC(),
	}
	if msg.Type == "" {
		msg.Type = domain.MessageText
	}
	if cmd.File != nil {
		msg.Type = domain.MessageFile
		msg.FileName = cmd.File.Name
		msg.FileSize = int64(len(cmd.File.Data))
	}
	return msg
}
