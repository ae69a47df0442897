package api

import (
	"time"

	"github.com/samber/lo"

	"chat-sync/domain"
)

// Wire shapes for the chat HTTP surface. Everything in this file is
// serialization only; components never see these types.

type roomDTO struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Type             string      `json:"type"`
	AvatarURL        string      `json:"avatarUrl,omitempty"`
	ParticipantIDs   []string    `json:"participantIds"`
	ParticipantCount int         `json:"participantCount"`
	LastMessage      *previewDTO `json:"lastMessage,omitempty"`
	UnreadCount      int         `json:"unreadCount"`
}

type previewDTO struct {
	Content    string    `json:"content"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Timestamp  time.Time `json:"timestamp"`
}

// MessageDTO is exported because realtime frames carry the same message
// shape in their data field.
type MessageDTO struct {
	ID           string     `json:"id"`
	RoomID       string     `json:"roomId"`
	SenderID     string     `json:"senderId"`
	SenderName   string     `json:"senderName"`
	SenderAvatar string     `json:"senderAvatar,omitempty"`
	Type         string     `json:"type"`
	Content      string     `json:"content"`
	FileURL      string     `json:"fileUrl,omitempty"`
	FileName     string     `json:"fileName,omitempty"`
	FileSize     int64      `json:"fileSize,omitempty"`
	IsEdited     bool       `json:"isEdited,omitempty"`
	EditedAt     *time.Time `json:"editedAt,omitempty"`
	ReplyTo      string     `json:"replyTo,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type roomsEnvelope struct {
	Success bool      `json:"success"`
	Error   string    `json:"error,omitempty"`
	Rooms   []roomDTO `json:"rooms"`
}

type roomEnvelope struct {
	Success bool    `json:"success"`
	Error   string  `json:"error,omitempty"`
	Room    roomDTO `json:"room"`
}

type messagesEnvelope struct {
	Success    bool          `json:"success"`
	Error      string        `json:"error,omitempty"`
	Messages   []MessageDTO  `json:"messages"`
	Pagination paginationDTO `json:"pagination"`
}

type messageEnvelope struct {
	Success bool       `json:"success"`
	Error   string     `json:"error,omitempty"`
	Message MessageDTO `json:"message"`
}

type paginationDTO struct {
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
}

type presenceEnvelope struct {
	OnlineUsers []string `json:"onlineUsers"`
}

type uploadEnvelope struct {
	URL string `json:"url"`
}

type createRoomBody struct {
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	MemberIDs []string `json:"memberIds"`
}

type postMessageBody struct {
	RoomID   string `json:"roomId"`
	Content  string `json:"content"`
	Type     string `json:"type"`
	FileURL  string `json:"fileUrl,omitempty"`
	FileName string `json:"fileName,omitempty"`
	FileSize int64  `json:"fileSize,omitempty"`
	ReplyTo  string `json:"replyTo,omitempty"`
}

func toRooms(dtos []roomDTO) []domain.Room {
	return lo.Map(dtos, func(dto roomDTO, _ int) domain.Room {
		return toRoom(dto)
	})
}

func toRoom(dto roomDTO) domain.Room {
	room := domain.Room{
		ID:               dto.ID,
		Name:             dto.Name,
		Type:             domain.RoomType(dto.Type),
		AvatarURL:        dto.AvatarURL,
		ParticipantIDs:   dto.ParticipantIDs,
		ParticipantCount: dto.ParticipantCount,
		UnreadCount:      dto.UnreadCount,
	}
	if room.ParticipantCount == 0 {
		room.ParticipantCount = len(dto.ParticipantIDs)
	}
	if dto.LastMessage != nil {
		room.LastMessage = &domain.MessagePreview{
			Content:    dto.LastMessage.Content,
			SenderID:   dto.LastMessage.SenderID,
			SenderName: dto.LastMessage.SenderName,
			Timestamp:  dto.LastMessage.Timestamp,
		}
	}
	return room
}

func toMessages(dtos []MessageDTO) []domain.Message {
	return lo.Map(dtos, func(dto MessageDTO, _ int) domain.Message {
		return dto.ToDomain()
	})
}

// ToDomain converts the wire message to the domain model. Ids on the wire are
// always server ids; temporary ids never leave the client.
func (dto MessageDTO) ToDomain() domain.Message {
	return domain.Message{
		ID:           domain.ConfirmedID(dto.ID),
		RoomID:       dto.RoomID,
		SenderID:     dto.SenderID,
		SenderName:   dto.SenderName,
		SenderAvatar: dto.SenderAvatar,
		Type:         domain.MessageType(dto.Type),
		Content:      dto.Content,
		FileURL:      dto.FileURL,
		FileName:     dto.FileName,
		FileSize:     dto.FileSize,
		IsEdited:     dto.IsEdited,
		EditedAt:     dto.EditedAt,
		ReplyTo:      dto.ReplyTo,
		CreatedAt:    dto.CreatedAt,
	}
}
