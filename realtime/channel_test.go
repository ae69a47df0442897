package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"chat-sync/domain"
	"chat-sync/domain/event"
	apperr "chat-sync/errors"
	"chat-sync/mocks"
	"chat-sync/observability"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type channelFixture struct {
	channel  *Channel
	dialer   *mocks.MockSocketDialer
	presence *mocks.MockPresenceAPI
	handler  *mocks.MockMessageHandler
	sock     *mocks.MockSocket
}

func newChannelFixture(t *testing.T, opts Options) *channelFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &channelFixture{
		dialer:   mocks.NewMockSocketDialer(ctrl),
		presence: mocks.NewMockPresenceAPI(ctrl),
		handler:  mocks.NewMockMessageHandler(ctrl),
		sock:     mocks.NewMockSocket(ctrl),
	}
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	f.channel = NewChannel(log, f.dialer, f.presence, f.handler, opts, observability.NewStats())
	return f
}

// scriptReads feeds frames to the socket's read loop, then fails the read so
// the loop exits without degrading (the test closes the channel first).
func (f *channelFixture) scriptReads(frames chan event.Frame) {
	f.sock.EXPECT().ReadFrame().DoAndReturn(func() (event.Frame, error) {
		frame, ok := <-frames
		if !ok {
			return event.Frame{}, apperr.ErrSocketClosed
		}
		return frame, nil
	}).AnyTimes()
}

func TestChannel_ConnectReachesConnectedAndJoins(t *testing.T) {
	req := require.New(t)
	f := newChannelFixture(t, Options{})

	frames := make(chan event.Frame)
	f.scriptReads(frames)
	f.dialer.EXPECT().Dial(gomock.Any(), "room-1").Return(f.sock, nil)
	f.sock.EXPECT().WriteFrame(gomock.Any()).DoAndReturn(func(frame event.Frame) error {
		require.Equal(t, event.Join, frame.Type)
		require.Equal(t, "room-1", frame.RoomID)
		return nil
	})
	f.sock.EXPECT().Close().Return(nil).AnyTimes()

	req.NoError(f.channel.Connect(context.Background(), "room-1"))
	req.Equal(domain.Connected, f.channel.State())

	// A second call for the same room never re-dials.
	req.NoError(f.channel.Connect(context.Background(), "room-1"))

	f.channel.Close()
	close(frames)
	req.Equal(domain.Disconnected, f.channel.State())
}

func TestChannel_InboundMessageFrameReachesHandler(t *testing.T) {
	req := require.New(t)
	f := newChannelFixture(t, Options{})

	frames := make(chan event.Frame)
	f.scriptReads(frames)
	f.dialer.EXPECT().Dial(gomock.Any(), "room-1").Return(f.sock, nil)
	f.sock.EXPECT().WriteFrame(gomock.Any()).Return(nil)
	f.sock.EXPECT().Close().Return(nil).AnyTimes()

	received := make(chan domain.Message, 1)
	f.handler.EXPECT().OnInbound(gomock.Any()).Do(func(msg domain.Message) {
		received <- msg
	})

	req.NoError(f.channel.Connect(context.Background(), "room-1"))

	data, err := json.Marshal(map[string]any{
		"id":        "srv-1",
		"roomId":    "room-1",
		"senderId":  "bob",
		"content":   "pushed",
		"type":      "text",
		"createdAt": time.Now().UTC(),
	})
	req.NoError(err)
	frames <- event.Frame{Type: event.Message, RoomID: "room-1", Data: data}

	select {
	case msg := <-received:
		req.Equal(domain.ConfirmedID("srv-1"), msg.ID)
		req.Equal("pushed", msg.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("message frame never reached the handler")
	}

	f.channel.Close()
	close(frames)
}

func TestChannel_DialFailureDegradesToPolling(t *testing.T) {
	req := require.New(t)
	f := newChannelFixture(t, Options{PresenceInterval: 20 * time.Millisecond})

	f.dialer.EXPECT().Dial(gomock.Any(), "room-1").Return(nil, apperr.ErrSocketClosed)

	polled := make(chan struct{}, 1)
	f.presence.EXPECT().Presence(gomock.Any(), "room-1").DoAndReturn(
		func(ctx context.Context, roomID string) ([]string, error) {
			select {
			case polled <- struct{}{}:
			default:
			}
			return []string{"bob", "carol"}, nil
		}).AnyTimes()

	req.NoError(f.channel.Connect(context.Background(), "room-1"))
	req.Equal(domain.FallingBack, f.channel.State())

	select {
	case <-polled:
	case <-time.After(2 * time.Second):
		t.Fatal("fallback never polled presence")
	}

	require.Eventually(t, func() bool {
		return len(f.channel.OnlineUsers()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	f.channel.Close()
}

func TestChannel_ReadErrorDegradesToPolling(t *testing.T) {
	req := require.New(t)
	f := newChannelFixture(t, Options{PresenceInterval: 20 * time.Millisecond})

	frames := make(chan event.Frame)
	f.scriptReads(frames)
	f.dialer.EXPECT().Dial(gomock.Any(), "room-1").Return(f.sock, nil)
	f.sock.EXPECT().WriteFrame(gomock.Any()).Return(nil)
	f.sock.EXPECT().Close().Return(nil).AnyTimes()
	f.presence.EXPECT().Presence(gomock.Any(), "room-1").Return(nil, nil).AnyTimes()

	req.NoError(f.channel.Connect(context.Background(), "room-1"))
	req.Equal(domain.Connected, f.channel.State())

	// Killing the read path must move the channel to FallingBack, not dead.
	close(frames)

	require.Eventually(t, func() bool {
		return f.channel.State() == domain.FallingBack
	}, 2*time.Second, 10*time.Millisecond)

	f.channel.Close()
}

func TestChannel_ReconnectRetriesPushPath(t *testing.T) {
	req := require.New(t)
	f := newChannelFixture(t, Options{PresenceInterval: time.Hour})

	gomock.InOrder(
		f.dialer.EXPECT().Dial(gomock.Any(), "room-1").Return(nil, apperr.ErrSocketClosed),
		f.dialer.EXPECT().Dial(gomock.Any(), "room-1").Return(f.sock, nil),
	)
	frames := make(chan event.Frame)
	f.scriptReads(frames)
	f.sock.EXPECT().WriteFrame(gomock.Any()).Return(nil)
	f.sock.EXPECT().Close().Return(nil).AnyTimes()
	f.presence.EXPECT().Presence(gomock.Any(), "room-1").Return(nil, nil).AnyTimes()

	req.NoError(f.channel.Connect(context.Background(), "room-1"))
	req.Equal(domain.FallingBack, f.channel.State())

	req.NoError(f.channel.Reconnect(context.Background()))
	req.Equal(domain.Connected, f.channel.State())

	f.channel.Close()
	close(frames)
}

func TestChannel_TypingFramesFeedTheRegistry(t *testing.T) {
	req := require.New(t)
	f := newChannelFixture(t, Options{SweepInterval: time.Hour})

	frames := make(chan event.Frame)
	f.scriptReads(frames)
	f.dialer.EXPECT().Dial(gomock.Any(), "room-1").Return(f.sock, nil)
	f.sock.EXPECT().WriteFrame(gomock.Any()).Return(nil)
	f.sock.EXPECT().Close().Return(nil).AnyTimes()

	req.NoError(f.channel.Connect(context.Background(), "room-1"))

	data, _ := json.Marshal(event.TypingPayload{UserID: "bob", UserName: "Bob", IsTyping: true})
	frames <- event.Frame{Type: event.Typing, RoomID: "room-1", Data: data}

	require.Eventually(t, func() bool {
		return len(f.channel.Typing()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	data, _ = json.Marshal(event.TypingPayload{UserID: "bob", IsTyping: false})
	frames <- event.Frame{Type: event.Typing, RoomID: "room-1", Data: data}

	require.Eventually(t, func() bool {
		return len(f.channel.Typing()) == 0
	}, 2*time.Second, 10*time.Millisecond)

	f.channel.Close()
	close(frames)
}

func TestChannel_SendTypingIsRateLimited(t *testing.T) {
	req := require.New(t)
	f := newChannelFixture(t, Options{
		TypingRateLimit: time.Hour,
		TypingAutoClear: time.Hour,
	})

	frames := make(chan event.Frame)
	f.scriptReads(frames)
	f.dialer.EXPECT().Dial(gomock.Any(), "room-1").Return(f.sock, nil)
	f.sock.EXPECT().Close().Return(nil).AnyTimes()

	writes := 0
	f.sock.EXPECT().WriteFrame(gomock.Any()).DoAndReturn(func(frame event.Frame) error {
		if frame.Type == event.Typing {
			writes++
		}
		return nil
	}).AnyTimes()

	req.NoError(f.channel.Connect(context.Background(), "room-1"))

	req.NoError(f.channel.SendTyping(true))
	req.NoError(f.channel.SendTyping(true))
	req.NoError(f.channel.SendTyping(true))
	req.Equal(1, writes)

	f.channel.Close()
	close(frames)
}

func TestChannel_SendTypingAutoClearsAfterSilence(t *testing.T) {
	req := require.New(t)
	f := newChannelFixture(t, Options{
		TypingRateLimit: time.Millisecond,
		TypingAutoClear: 30 * time.Millisecond,
	})

	frames := make(chan event.Frame)
	f.scriptReads(frames)
	f.dialer.EXPECT().Dial(gomock.Any(), "room-1").Return(f.sock, nil)
	f.sock.EXPECT().Close().Return(nil).AnyTimes()

	cleared := make(chan struct{}, 1)
	f.sock.EXPECT().WriteFrame(gomock.Any()).DoAndReturn(func(frame event.Frame) error {
		if frame.Type != event.Typing {
			return nil
		}
		var payload event.TypingPayload
		require.NoError(t, json.Unmarshal(frame.Data, &payload))
		if !payload.IsTyping {
			select {
			case cleared <- struct{}{}:
			default:
			}
		}
		return nil
	}).AnyTimes()

	req.NoError(f.channel.Connect(context.Background(), "room-1"))
	req.NoError(f.channel.SendTyping(true))

	select {
	case <-cleared:
	case <-time.After(2 * time.Second):
		t.Fatal("typing never auto-cleared")
	}

	f.channel.Close()
	close(frames)
}

func TestChannel_SendTypingIsNoOpWhileFallingBack(t *testing.T) {
	req := require.New(t)
	f := newChannelFixture(t, Options{PresenceInterval: time.Hour})

	f.dialer.EXPECT().Dial(gomock.Any(), "room-1").Return(nil, apperr.ErrSocketClosed)
	f.presence.EXPECT().Presence(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()

	req.NoError(f.channel.Connect(context.Background(), "room-1"))
	req.Equal(domain.FallingBack, f.channel.State())
	req.NoError(f.channel.SendTyping(true))

	f.channel.Close()
}

func TestChannel_CloseResetsTypingAndPresence(t *testing.T) {
	req := require.New(t)
	f := newChannelFixture(t, Options{})

	frames := make(chan event.Frame)
	f.scriptReads(frames)
	f.dialer.EXPECT().Dial(gomock.Any(), "room-1").Return(f.sock, nil)
	f.sock.EXPECT().WriteFrame(gomock.Any()).Return(nil)
	f.sock.EXPECT().Close().Return(nil).AnyTimes()

	req.NoError(f.channel.Connect(context.Background(), "room-1"))

	data, _ := json.Marshal(event.PresencePayload{UserID: "bob", Online: true})
	frames <- event.Frame{Type: event.Presence, RoomID: "room-1", Data: data}

	require.Eventually(t, func() bool {
		return len(f.channel.OnlineUsers()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	f.channel.Close()
	close(frames)
	req.Empty(f.channel.Typing())
	req.Empty(f.channel.OnlineUsers())
	req.Equal(domain.Disconnected, f.channel.State())
}
