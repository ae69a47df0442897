package services

import (
	"context"

	"chat-sync/domain"
	"chat-sync/runtime"
)

type IChatService interface {
	SelectRoom(roomID string)
	Rooms() []domain.Room
	CreateRoom(ctx context.Context, cmd domain.CreateRoomCommand) (domain.Room, error)
	JoinRoom(ctx context.Context, roomID string) error
	Messages() []domain.Message
	SendMessage(ctx context.Context, cmd domain.SendCommand) (domain.Message, error)
	LoadOlder(ctx context.Context) error
	NotifyTyping(isTyping bool) error
	Typing() []domain.TypingIndicator
	OnlineUsers() []string
}

// ChatService is the embedder-facing facade over the engine.
type ChatService struct {
	engine *runtime.Engine
}

func NewChatService(engine *runtime.Engine) *ChatService {
	return &ChatService{engine: engine}
}

func (s *ChatService) SelectRoom(roomID string) {
	s.engine.OnRoomChange(roomID)
}

func (s *ChatService) Rooms() []domain.Room {
	return s.engine.Directory().Rooms()
}

func (s *ChatService) CreateRoom(ctx context.Context, cmd domain.CreateRoomCommand) (domain.Room, error) {
	return s.engine.Directory().Create(ctx, cmd)
}

func (s *ChatService) JoinRoom(ctx context.Context, roomID string) error {
	return s.engine.Directory().Join(ctx, roomID)
}

func (s *ChatService) Messages() []domain.Message {
	return s.engine.Stream().Messages()
}

func (s *ChatService) SendMessage(ctx context.Context, cmd domain.SendCommand) (domain.Message, error) {
	return s.engine.Send(ctx, cmd)
}

func (s *ChatService) LoadOlder(ctx context.Context) error {
	return s.engine.Stream().LoadMore(ctx)
}

func (s *ChatService) NotifyTyping(isTyping bool) error {
	return s.engine.Channel().SendTyping(isTyping)
}

func (s *ChatService) Typing() []domain.TypingIndicator {
	return s.engine.Channel().Typing()
}

func (s *ChatService) OnlineUsers() []string {
	return s.engine.Channel().OnlineUsers()
}
