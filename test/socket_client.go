package test

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// StubSocketClient is a bare second participant on the websocket, used to
// originate frames the engine under test should react to.
type StubSocketClient struct {
	conn *websocket.Conn
}

func NewStubSocketClient(t *testing.T, baseURL, roomID string) *StubSocketClient {
	t.Helper()
	endpoint := strings.Replace(baseURL, "http", "ws", 1) + "/chat/ws?" +
		url.Values{"roomId": {roomID}}.Encode()
	conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
	require.NoError(t, err)
	return &StubSocketClient{conn: conn}
}

func (c *StubSocketClient) SendTyping(userID, userName string, isTyping bool) {
	data, _ := json.Marshal(map[string]any{
		"userId": userID, "userName": userName, "isTyping": isTyping,
	})
	_ = c.conn.WriteJSON(wireFrame{
		Type: "typing", UserID: userID, Data: data,
		Timestamp: time.Now().UTC(),
	})
}

func (c *StubSocketClient) Close() {
	_ = c.conn.Close()
}
