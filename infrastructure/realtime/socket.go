// Package realtime provides the websocket leg of the chat channel: dialing
// the room-scoped endpoint and exchanging JSON frames over it.
package realtime

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chat-sync/contract"
	"chat-sync/domain/event"
	apperr "chat-sync/errors"
)

const writeWait = 10 * time.Second

// Dialer opens sockets against one server. baseURL is the HTTP origin; the
// scheme is rewritten to ws/wss at dial time.
type Dialer struct {
	baseURL string
	dialer  *websocket.Dialer
}

func NewDialer(baseURL string) *Dialer {
	return &Dialer{baseURL: baseURL, dialer: websocket.DefaultDialer}
}

// Dial connects to /chat/ws for the given room. The returned socket is ready
// for frame traffic; sending the join frame is the caller's job.
func (d *Dialer) Dial(ctx context.Context, roomID string) (contract.Socket, error) {
	endpoint, err := d.endpoint(roomID)
	if err != nil {
		return nil, err
	}
	conn, _, err := d.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", endpoint, err)
	}
	return &Socket{conn: conn}, nil
}

func (d *Dialer) endpoint(roomID string) (string, error) {
	parsed, err := url.Parse(d.baseURL)
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	case "http", "":
		parsed.Scheme = "ws"
	}
	parsed.Path = strings.TrimSuffix(parsed.Path, "/") + "/chat/ws"
	parsed.RawQuery = url.Values{"roomId": {roomID}}.Encode()
	return parsed.String(), nil
}

// Socket wraps one websocket connection. Reads are single-consumer; writes
// are serialized by an internal mutex.
type Socket struct {
	conn *websocket.Conn

	writeMu sync.Mutex
	once    sync.Once
}

// ReadFrame blocks for the next inbound JSON frame.
func (s *Socket) ReadFrame() (event.Frame, error) {
	var frame event.Frame
	if err := s.conn.ReadJSON(&frame); err != nil {
		return event.Frame{}, fmt.Errorf("%w: %v", apperr.ErrSocketClosed, err)
	}
	return frame, nil
}

// WriteFrame sends one JSON frame with a bounded write deadline.
func (s *Socket) WriteFrame(frame event.Frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteJSON(frame)
}

// Close sends a close frame then tears the connection down. Safe to call
// more than once.
func (s *Socket) Close() error {
	var err error
	s.once.Do(func() {
		s.writeMu.Lock()
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}
