package observability

import (
	"sync/atomic"
	"time"
)

// Snapshot aggregates engine counters for the debug page and the viewer.
type Snapshot struct {
	RoomFetches      uint64 `json:"room_fetches"`
	MessageFetches   uint64 `json:"message_fetches"`
	MessagesMerged   uint64 `json:"messages_merged"`
	DuplicatesSeen   uint64 `json:"duplicates_seen"`
	SendsConfirmed   uint64 `json:"sends_confirmed"`
	SendsFailed      uint64 `json:"sends_failed"`
	Fallbacks        uint64 `json:"fallbacks"`
	Reconnects       uint64 `json:"reconnects"`
	PresencePolls    uint64 `json:"presence_polls"`
	TypingSweeps     uint64 `json:"typing_sweeps"`
	CancelledFetches uint64 `json:"cancelled_fetches"`
	Since            string `json:"since"`
}

// Stats collects realtime counters across components. All increments are
// atomic; a nil *Stats is valid and counts nothing, so components never need
// to guard their instrumentation.
type Stats struct {
	roomFetches      atomic.Uint64
	messageFetches   atomic.Uint64
	messagesMerged   atomic.Uint64
	duplicatesSeen   atomic.Uint64
	sendsConfirmed   atomic.Uint64
	sendsFailed      atomic.Uint64
	fallbacks        atomic.Uint64
	reconnects       atomic.Uint64
	presencePolls    atomic.Uint64
	typingSweeps     atomic.Uint64
	cancelledFetches atomic.Uint64
	started          time.Time
}

func NewStats() *Stats {
	return &Stats{started: time.Now()}
}

func (s *Stats) IncrRoomFetches() {
	if s != nil {
		s.roomFetches.Add(1)
	}
}

func (s *Stats) IncrMessageFetches() {
	if s != nil {
		s.messageFetches.Add(1)
	}
}

func (s *Stats) IncrMessagesMerged() {
	if s != nil {
		s.messagesMerged.Add(1)
	}
}

func (s *Stats) IncrDuplicatesSeen() {
	if s != nil {
		s.duplicatesSeen.Add(1)
	}
}

func (s *Stats) IncrSendsConfirmed() {
	if s != nil {
		s.sendsConfirmed.Add(1)
	}
}

func (s *Stats) IncrSendsFailed() {
	if s != nil {
		s.sendsFailed.Add(1)
	}
}

func (s *Stats) IncrFallbacks() {
	if s != nil {
		s.fallbacks.Add(1)
	}
}

func (s *Stats) IncrReconnects() {
	if s != nil {
		s.reconnects.Add(1)
	}
}

func (s *Stats) IncrPresencePolls() {
	if s != nil {
		s.presencePolls.Add(1)
	}
}

func (s *Stats) IncrTypingSweeps() {
	if s != nil {
		s.typingSweeps.Add(1)
	}
}

func (s *Stats) IncrCancelledFetches() {
	if s != nil {
		s.cancelledFetches.Add(1)
	}
}

// GetLatest returns a point-in-time copy of every counter.
func (s *Stats) GetLatest() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	return Snapshot{
		RoomFetches:      s.roomFetches.Load(),
		MessageFetches:   s.messageFetches.Load(),
		MessagesMerged:   s.messagesMerged.Load(),
		DuplicatesSeen:   s.duplicatesSeen.Load(),
		SendsConfirmed:   s.sendsConfirmed.Load(),
		SendsFailed:      s.sendsFailed.Load(),
		Fallbacks:        s.fallbacks.Load(),
		Reconnects:       s.reconnects.Load(),
		PresencePolls:    s.presencePolls.Load(),
		TypingSweeps:     s.typingSweeps.Load(),
		CancelledFetches: s.cancelledFetches.Load(),
		Since:            s.started.Format(time.RFC822),
	}
}
