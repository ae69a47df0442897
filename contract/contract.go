//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-sync/domain"
	"chat-sync/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes, avoiding the need
// for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// RoomAPI is the room slice of the server's HTTP surface.
type RoomAPI interface {
	Rooms(ctx context.Context) ([]domain.Room, error)
	CreateRoom(ctx context.Context, cmd domain.CreateRoomCommand) (domain.Room, error)
	JoinRoom(ctx context.Context, roomID string) error
}

// MessageAPI is the message history, posting, and upload surface.
type MessageAPI interface {
	Messages(ctx context.Context, roomID string, page, limit int) ([]domain.Message, domain.Pagination, error)
	PostMessage(ctx context.Context, req domain.PostMessageRequest) (domain.Message, error)
	Upload(ctx context.Context, file domain.FileUpload) (domain.Attachment, error)
}

// PresenceAPI is the room-scoped presence endpoint used by fallback polling.
type PresenceAPI interface {
	Presence(ctx context.Context, roomID string) ([]string, error)
}

// Socket is one established realtime connection exchanging JSON frames.
type Socket interface {
	ReadFrame() (event.Frame, error)
	WriteFrame(frame event.Frame) error
	Close() error
}

// SocketDialer establishes a Socket scoped to one room.
type SocketDialer interface {
	Dial(ctx context.Context, roomID string) (Socket, error)
}

// StreamMutator is the surface the reconciliation layer uses to mutate the
// message timeline. The realtime channel never reaches past it.
type StreamMutator interface {
	AddOptimistic(msg domain.Message)
	Confirm(senderID, content string, confirmed domain.Message)
	Merge(msg domain.Message)
	Update(id domain.MessageID, apply func(*domain.Message))
	Remove(id domain.MessageID)
	RoomID() string
}

// MessageHandler receives server-confirmed messages pushed on the channel.
type MessageHandler interface {
	OnInbound(msg domain.Message)
}
