package domain

import (
	"fmt"
	"time"
)

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageFile   MessageType = "file"
	MessageSystem MessageType = "system"
)

// MessageID is either a server-assigned id or a local temporary id handed out
// while a send awaits confirmation. Exactly one of the two fields is set, so
// the reconciliation match is a type-level check instead of a string-prefix
// convention. The zero value is no id at all.
type MessageID struct {
	server string
	local  uint64
}

func ConfirmedID(serverID string) MessageID {
	return MessageID{server: serverID}
}

func TemporaryID(counter uint64) MessageID {
	return MessageID{local: counter}
}

func (id MessageID) IsTemporary() bool { return id.server == "" && id.local != 0 }

func (id MessageID) IsZero() bool { return id.server == "" && id.local == 0 }

// ServerID returns the confirmed id, or "" for a temporary id.
func (id MessageID) ServerID() string { return id.server }

func (id MessageID) String() string {
	if id.IsTemporary() {
		return fmt.Sprintf("local-%d", id.local)
	}
	return id.server
}

// Message is one chat entry. Seq is the timeline insertion sequence used to
// break CreatedAt ties; it is assigned locally and never crosses the wire.
type Message struct {
	ID           MessageID
	RoomID       string
	SenderID     string
	SenderName   string
	SenderAvatar string
	Type         MessageType
	Content      string
	FileURL      string
	FileName     string
	FileSize     int64
	IsEdited     bool
	EditedAt     *time.Time
	ReplyTo      string
	CreatedAt    time.Time
	Seq          uint64
}

// Identity is the local user on whose behalf the engine sends messages.
type Identity struct {
	UserID    string
	UserName  string
	AvatarURL string
}
