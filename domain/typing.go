package domain

import "time"

// TypingIndicator is a short-lived signal that a participant is composing a
// message. Entries expire after a TTL unless refreshed by another typing
// event for the same user.
type TypingIndicator struct {
	RoomID      string
	UserID      string
	UserName    string
	IsTyping    bool
	RefreshedAt time.Time
}
