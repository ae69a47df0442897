package test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"chat-sync/directory"
	"chat-sync/domain"
	apperr "chat-sync/errors"
	"chat-sync/infrastructure/api"
	wsinfra "chat-sync/infrastructure/realtime"
	"chat-sync/observability"
	"chat-sync/realtime"
	"chat-sync/reconcile"
	"chat-sync/runtime"
	"chat-sync/stream"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type scenario struct {
	cfg    ScenarioConfig
	server *StubServer
	engine *runtime.Engine
	stats  *observability.Stats
}

func newScenario(t *testing.T) *scenario {
	t.Helper()
	req := require.New(t)

	cfg, err := LoadScenarioConfig()
	req.NoError(err)

	server := NewStubServer(cfg.CSRFToken)
	t.Cleanup(server.Close)

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	stats := observability.NewStats()
	self := domain.Identity{UserID: "alice", UserName: "Alice"}

	client := api.NewClient(nil, server.URL(), cfg.CSRFToken, log)
	dir := directory.NewDirectory(log, client, stats)
	str := stream.NewStream(log, client, self, cfg.PageLimit, stats)
	reconciler := reconcile.NewEngine(log, str, self)
	channel := realtime.NewChannel(log, wsinfra.NewDialer(server.URL()), client, reconciler,
		realtime.Options{
			PresenceInterval: 50 * time.Millisecond,
			SweepInterval:    20 * time.Millisecond,
			TypingTTL:        100 * time.Millisecond,
		}, stats)

	engine := runtime.NewEngine(log, dir, str, channel, reconciler, time.Hour, time.Hour)
	t.Cleanup(engine.Stop)

	return &scenario{cfg: cfg, server: server, engine: engine, stats: stats}
}

func (s *scenario) eventually(t *testing.T, cond func() bool, what string) {
	t.Helper()
	require.Eventually(t, cond, s.cfg.WaitFor, s.cfg.Tick, what)
}

func Test_Scenario_SendAndReceiveOverWebsocket(t *testing.T) {
	req := require.New(t)
	s := newScenario(t)
	s.server.AddRoom("general", "General", "group", "alice", "bob")

	s.engine.Start(context.Background())
	s.eventually(t, func() bool {
		return len(s.engine.Directory().Rooms()) == 1
	}, "room list never arrived")

	s.engine.OnRoomChange("general")
	s.eventually(t, func() bool {
		return s.engine.Channel().State() == domain.Connected
	}, "socket never connected")

	// Outbound: optimistic entry reconciles against the confirmed record.
	sent, err := s.engine.Send(context.Background(), domain.SendCommand{Content: "morning"})
	req.NoError(err)
	req.False(sent.ID.IsTemporary())

	msgs := s.engine.Stream().Messages()
	req.Len(msgs, 1)
	req.Equal(sent.ID, msgs[0].ID)

	// The server echoes the post on the socket; the id dedupe keeps one copy.
	pushed := s.server.Push("general", "bob", "hey alice")
	s.eventually(t, func() bool {
		return len(s.engine.Stream().Messages()) == 2
	}, "pushed message never landed")

	msgs = s.engine.Stream().Messages()
	req.Equal(sent.ID, msgs[0].ID)
	req.Equal(domain.ConfirmedID(pushed.ID), msgs[1].ID)
	req.Equal("hey alice", msgs[1].Content)
}

func Test_Scenario_HistoryPagination(t *testing.T) {
	req := require.New(t)
	s := newScenario(t)
	s.server.AddRoom("general", "General", "group", "alice", "bob")
	for range 120 {
		s.server.Push("general", "bob", "backlog")
	}

	s.engine.Start(context.Background())
	s.engine.OnRoomChange("general")

	s.eventually(t, func() bool {
		return len(s.engine.Stream().Messages()) == s.cfg.PageLimit
	}, "page 1 never arrived")
	req.True(s.engine.Stream().HasMore())

	req.NoError(s.engine.Stream().LoadMore(context.Background()))
	req.Len(s.engine.Stream().Messages(), 2*s.cfg.PageLimit)

	req.NoError(s.engine.Stream().LoadMore(context.Background()))
	req.Len(s.engine.Stream().Messages(), 120)
	req.False(s.engine.Stream().HasMore())
}

func Test_Scenario_FailedSendKeepsOptimisticEntry(t *testing.T) {
	req := require.New(t)
	s := newScenario(t)
	s.server.AddRoom("general", "General", "group", "alice")

	s.engine.Start(context.Background())
	s.engine.OnRoomChange("general")
	s.eventually(t, func() bool {
		return s.engine.Channel().State() == domain.Connected
	}, "socket never connected")

	s.server.RejectPosts(true)
	temp, err := s.engine.Send(context.Background(), domain.SendCommand{Content: "doomed"})
	req.ErrorIs(err, apperr.ErrServerRejected)
	req.True(temp.ID.IsTemporary())

	msgs := s.engine.Stream().Messages()
	req.Len(msgs, 1)
	req.Equal(temp.ID, msgs[0].ID)
	req.Equal(0, s.server.MessageCount("general"))

	// The server recovers; a retry goes through and both entries remain,
	// the failed one still visibly temporary.
	s.server.RejectPosts(false)
	confirmed, err := s.engine.Send(context.Background(), domain.SendCommand{Content: "retry"})
	req.NoError(err)

	s.eventually(t, func() bool {
		return len(s.engine.Stream().Messages()) == 2
	}, "retried send never settled")
	msgs = s.engine.Stream().Messages()
	req.Equal(temp.ID, msgs[0].ID)
	req.Equal(confirmed.ID, msgs[1].ID)
}

func Test_Scenario_RoomSwitchIsolatesTimelines(t *testing.T) {
	req := require.New(t)
	s := newScenario(t)
	s.server.AddRoom("general", "General", "group", "alice", "bob")
	s.server.AddRoom("support", "Support", "support", "alice", "carol")
	s.server.Push("general", "bob", "in general")
	s.server.Push("support", "carol", "in support")

	s.engine.Start(context.Background())
	s.engine.OnRoomChange("general")
	s.eventually(t, func() bool {
		msgs := s.engine.Stream().Messages()
		return len(msgs) == 1 && msgs[0].Content == "in general"
	}, "general history never arrived")

	s.engine.OnRoomChange("support")
	s.eventually(t, func() bool {
		msgs := s.engine.Stream().Messages()
		return len(msgs) == 1 && msgs[0].Content == "in support"
	}, "support history never arrived")

	// A push to the abandoned room must not leak into the current one.
	s.server.Push("general", "bob", "ghost")
	time.Sleep(5 * s.cfg.Tick)
	msgs := s.engine.Stream().Messages()
	req.Len(msgs, 1)
	req.Equal("in support", msgs[0].Content)
}

func Test_Scenario_CreateRoomThenTalk(t *testing.T) {
	req := require.New(t)
	s := newScenario(t)

	s.engine.Start(context.Background())

	room, err := s.engine.Directory().Create(context.Background(), domain.CreateRoomCommand{
		Name: "design", Type: domain.RoomGroup, MemberIDs: []string{"bob"},
	})
	req.NoError(err)
	req.NotEmpty(room.ID)
	req.Len(s.engine.Directory().Rooms(), 1)

	// Join is best-effort: this server has no join endpoint.
	req.NoError(s.engine.Directory().Join(context.Background(), room.ID))

	s.engine.OnRoomChange(room.ID)
	s.eventually(t, func() bool {
		return s.engine.Channel().State() == domain.Connected
	}, "socket never connected")

	sent, err := s.engine.Send(context.Background(), domain.SendCommand{Content: "kickoff"})
	req.NoError(err)
	req.Equal(1, s.server.MessageCount(room.ID))
	req.False(sent.ID.IsTemporary())
}

func Test_Scenario_TypingIndicatorsExpire(t *testing.T) {
	req := require.New(t)
	s := newScenario(t)
	s.server.AddRoom("general", "General", "group", "alice", "bob")

	s.engine.Start(context.Background())
	s.engine.OnRoomChange("general")
	s.eventually(t, func() bool {
		return s.engine.Channel().State() == domain.Connected
	}, "socket never connected")

	// Bob types from a second connection; Alice's engine picks it up.
	observer := NewStubSocketClient(t, s.server.URL(), "general")
	defer observer.Close()
	observer.SendTyping("bob", "Bob", true)

	s.eventually(t, func() bool {
		typing := s.engine.Channel().Typing()
		return len(typing) == 1 && typing[0].UserID == "bob"
	}, "typing indicator never appeared")

	// No refresh from Bob: the TTL sweep clears him.
	s.eventually(t, func() bool {
		return len(s.engine.Channel().Typing()) == 0
	}, "typing indicator never expired")
	req.Equal(domain.Connected, s.engine.Channel().State())
}

func Test_Scenario_FileUploadRoundTrip(t *testing.T) {
	req := require.New(t)
	s := newScenario(t)
	s.server.AddRoom("general", "General", "group", "alice")

	s.engine.Start(context.Background())
	s.engine.OnRoomChange("general")
	s.eventually(t, func() bool {
		return s.engine.Channel().State() == domain.Connected
	}, "socket never connected")

	sent, err := s.engine.Send(context.Background(), domain.SendCommand{
		Content: "minutes attached",
		File:    &domain.FileUpload{Name: "minutes.txt", Data: []byte("decisions...")},
	})
	req.NoError(err)
	req.Equal(domain.MessageFile, sent.Type)
	req.Equal("/uploads/minutes.txt", sent.FileURL)
	req.Equal("minutes.txt", sent.FileName)
}
