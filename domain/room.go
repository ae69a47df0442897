package domain

import "time"

type RoomType string

const (
	RoomDirect  RoomType = "direct"
	RoomGroup   RoomType = "group"
	RoomSupport RoomType = "support"
)

// Room is a named conversation scope. Instances are server-authoritative:
// the directory replaces its whole list on every refresh and never patches
// a single room in place.
type Room struct {
	ID               string
	Name             string
	Type             RoomType
	AvatarURL        string
	ParticipantIDs   []string
	ParticipantCount int
	LastMessage      *MessagePreview
	UnreadCount      int
}

// MessagePreview is the denormalized last-message excerpt carried on a room
// for list rendering.
type MessagePreview struct {
	Content    string
	SenderID   string
	SenderName string
	Timestamp  time.Time
}
