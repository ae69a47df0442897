// Package projection builds the local message timeline from fetches, sends,
// and realtime pushes. Handles ordering and deduplication.
// Does not perform I/O or interact with transports directly.
package projection

import (
	"sort"

	"chat-sync/domain"
)

// Timeline holds one room's messages, unique by id and kept in
// non-decreasing CreatedAt order. Equal timestamps keep insertion order:
// a new entry is placed after every already-present equal entry, never
// by re-sorting the whole list.
//
// Timeline is not safe for concurrent use; the owning stream serializes
// access.
type Timeline struct {
	messages []domain.Message
	ids      map[domain.MessageID]struct{}
	nextSeq  uint64
}

func NewTimeline() *Timeline {
	return &Timeline{ids: make(map[domain.MessageID]struct{})}
}

// Insert places msg at its CreatedAt position. A message whose id is already
// present is rejected as a no-op.
func (t *Timeline) Insert(msg domain.Message) bool {
	if _, ok := t.ids[msg.ID]; ok {
		return false
	}
	t.nextSeq++
	msg.Seq = t.nextSeq

	at := sort.Search(len(t.messages), func(i int) bool {
		return t.messages[i].CreatedAt.After(msg.CreatedAt)
	})
	t.messages = append(t.messages, domain.Message{})
	copy(t.messages[at+1:], t.messages[at:])
	t.messages[at] = msg
	t.ids[msg.ID] = struct{}{}
	return true
}

// Replace swaps the whole timeline for msgs, preserving their given order
// for equal timestamps.
func (t *Timeline) Replace(msgs []domain.Message) {
	t.messages = t.messages[:0]
	clear(t.ids)
	for _, msg := range msgs {
		t.Insert(msg)
	}
}

// Update applies fn to the message with the given id in place.
func (t *Timeline) Update(id domain.MessageID, fn func(*domain.Message)) bool {
	for i := range t.messages {
		if t.messages[i].ID == id {
			fn(&t.messages[i])
			return true
		}
	}
	return false
}

// Remove deletes the message with the given id.
func (t *Timeline) Remove(id domain.MessageID) bool {
	for i := range t.messages {
		if t.messages[i].ID == id {
			t.messages = append(t.messages[:i], t.messages[i+1:]...)
			delete(t.ids, id)
			return true
		}
	}
	return false
}

// RemoveLatestTemporary drops the most recent temporary-id message from
// senderID whose content equals content, returning it if found. This is the
// send-confirmation match: a heuristic that can pick the wrong entry when
// the same user sends identical content twice before the first confirms.
func (t *Timeline) RemoveLatestTemporary(senderID, content string) (domain.Message, bool) {
	for i := len(t.messages) - 1; i >= 0; i-- {
		msg := t.messages[i]
		if msg.ID.IsTemporary() && msg.SenderID == senderID && msg.Content == content {
			t.messages = append(t.messages[:i], t.messages[i+1:]...)
			delete(t.ids, msg.ID)
			return msg, true
		}
	}
	return domain.Message{}, false
}

func (t *Timeline) Has(id domain.MessageID) bool {
	_, ok := t.ids[id]
	return ok
}

func (t *Timeline) Len() int { return len(t.messages) }

// Messages returns a copy of the ordered timeline.
func (t *Timeline) Messages() []domain.Message {
	out := make([]domain.Message, len(t.messages))
	copy(out, t.messages)
	return out
}
