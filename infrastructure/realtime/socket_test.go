package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chat-sync/domain/event"
	apperr "chat-sync/errors"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

// wsServer upgrades every request and hands the server side of the
// connection to handle.
func wsServer(t *testing.T, handle func(r *http.Request, conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer func() { _ = conn.Close() }()
		handle(r, conn)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestDialer_DialTargetsRoomScopedEndpoint(t *testing.T) {
	req := require.New(t)
	requests := make(chan *http.Request, 1)
	server := wsServer(t, func(r *http.Request, conn *websocket.Conn) {
		requests <- r
		_, _, _ = conn.ReadMessage()
	})

	sock, err := NewDialer(server.URL).Dial(context.Background(), "room-1")
	req.NoError(err)
	defer func() { _ = sock.Close() }()

	r := <-requests
	req.Equal("/chat/ws", r.URL.Path)
	req.Equal("room-1", r.URL.Query().Get("roomId"))
}

func TestDialer_DialFailsWhenServerIsDown(t *testing.T) {
	req := require.New(t)
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	_, err := NewDialer(server.URL).Dial(context.Background(), "room-1")
	req.Error(err)
}

func TestSocket_FramesRoundTrip(t *testing.T) {
	req := require.New(t)
	server := wsServer(t, func(r *http.Request, conn *websocket.Conn) {
		// Echo each inbound frame back.
		var frame event.Frame
		for {
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}
	})

	sock, err := NewDialer(server.URL).Dial(context.Background(), "room-1")
	req.NoError(err)
	defer func() { _ = sock.Close() }()

	sent := event.TypingFrame("room-1", true)
	req.NoError(sock.WriteFrame(sent))

	got, err := sock.ReadFrame()
	req.NoError(err)
	req.Equal(event.Typing, got.Type)
	req.Equal("room-1", got.RoomID)

	var payload event.TypingPayload
	req.NoError(json.Unmarshal(got.Data, &payload))
	req.True(payload.IsTyping)
}

func TestSocket_ReadAfterServerCloseFails(t *testing.T) {
	req := require.New(t)
	server := wsServer(t, func(r *http.Request, conn *websocket.Conn) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
	})

	sock, err := NewDialer(server.URL).Dial(context.Background(), "room-1")
	req.NoError(err)
	defer func() { _ = sock.Close() }()

	_, err = sock.ReadFrame()
	req.ErrorIs(err, apperr.ErrSocketClosed)
}

func TestSocket_CloseIsIdempotent(t *testing.T) {
	req := require.New(t)
	server := wsServer(t, func(r *http.Request, conn *websocket.Conn) {
		_, _, _ = conn.ReadMessage()
	})

	sock, err := NewDialer(server.URL).Dial(context.Background(), "room-1")
	req.NoError(err)

	req.NoError(sock.Close())
	req.NoError(sock.Close())
}

func TestDialer_SchemeRewrite(t *testing.T) {
	tests := []struct {
		description string
		baseURL     string
		want        string
	}{
		{"Should rewrite http to ws", "http://host:8080", "ws://host:8080/chat/ws?roomId=r1"},
		{"Should rewrite https to wss", "https://host", "wss://host/chat/ws?roomId=r1"},
		{"Should keep a base path", "http://host/app/", "ws://host/app/chat/ws?roomId=r1"},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			endpoint, err := NewDialer(tt.baseURL).endpoint("r1")
			require.NoError(t, err)
			require.Equal(t, tt.want, endpoint)
		})
	}
}
