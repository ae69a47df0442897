// Package event defines the JSON frames exchanged on the realtime channel.
// Frames are a tagged union discriminated by Type; Data carries the
// type-specific payload.
package event

import (
	"encoding/json"
	"time"
)

type Type string

const (
	Join       Type = "join"
	Message    Type = "message"
	Typing     Type = "typing"
	Presence   Type = "presence"
	RoomUpdate Type = "room_update"
	Error      Type = "error"
)

type Frame struct {
	Type      Type            `json:"type"`
	RoomID    string          `json:"roomId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitzero"`
}

// JoinFrame is the outbound control frame sent right after the socket opens.
func JoinFrame(roomID string) Frame {
	return Frame{Type: Join, RoomID: roomID, Timestamp: time.Now().UTC()}
}

// TypingFrame is the outbound local-user typing notification.
func TypingFrame(roomID string, isTyping bool) Frame {
	data, _ := json.Marshal(TypingPayload{IsTyping: isTyping})
	return Frame{Type: Typing, RoomID: roomID, Data: data, Timestamp: time.Now().UTC()}
}

// TypingPayload is carried by inbound and outbound typing frames.
type TypingPayload struct {
	UserID   string `json:"userId,omitempty"`
	UserName string `json:"userName,omitempty"`
	IsTyping bool   `json:"isTyping"`
}

// PresencePayload flips one user's membership in the online set.
type PresencePayload struct {
	UserID string `json:"userId"`
	Online bool   `json:"online"`
}

// ErrorPayload is the server's structured error frame body.
type ErrorPayload struct {
	Message string `json:"message"`
}
