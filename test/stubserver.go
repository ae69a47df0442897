package test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Wire shapes mirroring the chat server contract. Kept private to the test
// package; the engine only ever sees the HTTP/WS surface.

type wireRoom struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	ParticipantIDs []string `json:"participantIds"`
}

type wireMessage struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"roomId"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Type       string    `json:"type"`
	Content    string    `json:"content"`
	FileURL    string    `json:"fileUrl,omitempty"`
	FileName   string    `json:"fileName,omitempty"`
	FileSize   int64     `json:"fileSize,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type wireFrame struct {
	Type      string          `json:"type"`
	RoomID    string          `json:"roomId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitzero"`
}

// StubServer is an in-memory chat backend: enough of the room, message,
// upload, presence, and websocket surface for a full engine to run against.
// It deliberately has no join endpoint, answering 404 like servers that
// auto-join on room creation.
type StubServer struct {
	mu       sync.Mutex
	rooms    []wireRoom
	messages map[string][]wireMessage
	conns    map[string][]*websocket.Conn
	online   map[string][]string
	csrf     string
	rejects  bool // flips every POST /chat/messages into a 500

	server   *httptest.Server
	upgrader websocket.Upgrader
}

func NewStubServer(csrf string) *StubServer {
	s := &StubServer{
		messages: make(map[string][]wireMessage),
		conns:    make(map[string][]*websocket.Conn),
		online:   make(map[string][]string),
		csrf:     csrf,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /chat/rooms", s.handleRooms)
	mux.HandleFunc("POST /chat/rooms", s.handleCreateRoom)
	mux.HandleFunc("GET /chat/rooms/{id}/presence", s.handlePresence)
	mux.HandleFunc("GET /chat/messages", s.handleMessages)
	mux.HandleFunc("POST /chat/messages", s.handlePostMessage)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("GET /chat/ws", s.handleSocket)

	s.server = httptest.NewServer(mux)
	return s
}

func (s *StubServer) URL() string { return s.server.URL }

func (s *StubServer) Close() {
	s.mu.Lock()
	for _, conns := range s.conns {
		for _, conn := range conns {
			_ = conn.Close()
		}
	}
	s.mu.Unlock()
	s.server.Close()
}

// AddRoom seeds a room without going through the create endpoint.
func (s *StubServer) AddRoom(id, name, roomType string, participants ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms = append(s.rooms, wireRoom{
		ID: id, Name: name, Type: roomType, ParticipantIDs: participants,
	})
}

// SetOnline scripts the presence answer for a room.
func (s *StubServer) SetOnline(roomID string, userIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.online[roomID] = userIDs
}

// RejectPosts makes every subsequent message post fail server-side.
func (s *StubServer) RejectPosts(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejects = reject
}

// Push stores a message as if another user had sent it and broadcasts it on
// every socket attached to the room.
func (s *StubServer) Push(roomID, senderID, content string) wireMessage {
	msg := wireMessage{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		SenderID:  senderID,
		Type:      "text",
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.messages[roomID] = append(s.messages[roomID], msg)
	s.mu.Unlock()
	s.broadcast(roomID, msg)
	return msg
}

// MessageCount returns how many messages the server stores for a room.
func (s *StubServer) MessageCount(roomID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages[roomID])
}

func (s *StubServer) handleRooms(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	rooms := append([]wireRoom(nil), s.rooms...)
	s.mu.Unlock()
	writeJSON(w, map[string]any{"success": true, "rooms": rooms})
}

func (s *StubServer) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name      string   `json:"name"`
		Type      string   `json:"type"`
		MemberIDs []string `json:"memberIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]any{"success": false, "error": "malformed body"})
		return
	}
	room := wireRoom{
		ID: uuid.NewString(), Name: body.Name, Type: body.Type,
		ParticipantIDs: body.MemberIDs,
	}
	s.mu.Lock()
	s.rooms = append(s.rooms, room)
	s.mu.Unlock()
	writeJSON(w, map[string]any{"success": true, "room": room})
}

func (s *StubServer) handlePresence(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	users := append([]string(nil), s.online[r.PathValue("id")]...)
	s.mu.Unlock()
	writeJSON(w, map[string]any{"onlineUsers": users})
}

func (s *StubServer) handleMessages(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomId")
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}

	s.mu.Lock()
	all := append([]wireMessage(nil), s.messages[roomID]...)
	s.mu.Unlock()

	totalPages := (len(all) + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	// Page 1 is the newest slice; older pages reach further back.
	end := len(all) - (page-1)*limit
	start := end - limit
	if end < 0 {
		end = 0
	}
	if start < 0 {
		start = 0
	}

	writeJSON(w, map[string]any{
		"success":  true,
		"messages": all[start:end],
		"pagination": map[string]any{
			"page": page, "totalPages": totalPages,
		},
	})
}

func (s *StubServer) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	if s.csrf != "" && r.Header.Get("X-CSRF-Token") != s.csrf {
		w.WriteHeader(http.StatusForbidden)
		writeJSON(w, map[string]any{"success": false, "error": "missing csrf token"})
		return
	}

	s.mu.Lock()
	rejecting := s.rejects
	s.mu.Unlock()
	if rejecting {
		w.WriteHeader(http.StatusInternalServerError)
		writeJSON(w, map[string]any{"success": false, "error": "storage unavailable"})
		return
	}

	var body struct {
		RoomID   string `json:"roomId"`
		Content  string `json:"content"`
		Type     string `json:"type"`
		FileURL  string `json:"fileUrl"`
		FileName string `json:"fileName"`
		FileSize int64  `json:"fileSize"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]any{"success": false, "error": "malformed body"})
		return
	}

	msg := wireMessage{
		ID:        uuid.NewString(),
		RoomID:    body.RoomID,
		SenderID:  "alice",
		Type:      body.Type,
		Content:   body.Content,
		FileURL:   body.FileURL,
		FileName:  body.FileName,
		FileSize:  body.FileSize,
		CreatedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.messages[body.RoomID] = append(s.messages[body.RoomID], msg)
	s.mu.Unlock()
	s.broadcast(body.RoomID, msg)

	writeJSON(w, map[string]any{"success": true, "message": msg})
}

func (s *StubServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]any{"error": "malformed upload"})
		return
	}
	_, header, err := r.FormFile("file")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]any{"error": "missing file part"})
		return
	}
	writeJSON(w, map[string]any{"url": "/uploads/" + header.Filename})
}

func (s *StubServer) handleSocket(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomId")
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.conns[roomID] = append(s.conns[roomID], conn)
	s.mu.Unlock()

	// Inbound frames: typing is echoed to the other sockets in the room,
	// everything else is dropped.
	go func() {
		defer s.detach(roomID, conn)
		for {
			var frame wireFrame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			if frame.Type == "typing" {
				s.fanOut(roomID, conn, frame)
			}
		}
	}()
}

func (s *StubServer) detach(roomID string, conn *websocket.Conn) {
	_ = conn.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	conns := s.conns[roomID]
	for i, c := range conns {
		if c == conn {
			s.conns[roomID] = append(conns[:i], conns[i+1:]...)
			return
		}
	}
}

func (s *StubServer) broadcast(roomID string, msg wireMessage) {
	data, _ := json.Marshal(msg)
	frame := wireFrame{
		Type: "message", RoomID: roomID, Data: data,
		Timestamp: time.Now().UTC(),
	}
	s.fanOut(roomID, nil, frame)
}

// fanOut writes under the server mutex: one writer per connection at a time.
func (s *StubServer) fanOut(roomID string, except *websocket.Conn, frame wireFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.conns[roomID] {
		if conn == except {
			continue
		}
		_ = conn.WriteJSON(frame)
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
