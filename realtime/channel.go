// Package realtime maintains the live event channel for the selected room.
// It tries the websocket push path first and degrades transparently to
// presence polling when the socket cannot be established or dies; callers
// see "less instant", never a hard failure.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/domain/event"
	"chat-sync/infrastructure/api"
	"chat-sync/observability"
	"chat-sync/runtime/workers"
)

// Options carries the channel cadences. Zero values are replaced by the
// documented defaults.
type Options struct {
	PresenceInterval time.Duration // fallback poll, default 3s
	TypingTTL        time.Duration // indicator expiry, default 5s
	SweepInterval    time.Duration // TTL sweep cadence, default 1s
	TypingRateLimit  time.Duration // outbound typing floor, default 1s
	TypingAutoClear  time.Duration // silence before auto isTyping=false, default 3s
}

func (o Options) withDefaults() Options {
	if o.PresenceInterval <= 0 {
		o.PresenceInterval = 3 * time.Second
	}
	if o.TypingTTL <= 0 {
		o.TypingTTL = 5 * time.Second
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = time.Second
	}
	if o.TypingRateLimit <= 0 {
		o.TypingRateLimit = time.Second
	}
	if o.TypingAutoClear <= 0 {
		o.TypingAutoClear = 3 * time.Second
	}
	return o
}

// Channel is the dual-transport supervisor. State moves through
// Disconnected → Connecting → Connected, degrades to FallingBack on socket
// failure while a room is still selected, and only Reconnect or a room
// change leaves FallingBack.
type Channel struct {
	mu       sync.Mutex
	log      *slog.Logger
	dialer   contract.SocketDialer
	presence contract.PresenceAPI
	handler  contract.MessageHandler
	stats    *observability.Stats
	opts     Options

	state          domain.ChannelState
	roomID         string
	sock           contract.Socket
	cancel         context.CancelFunc
	typing         *TypingRegistry
	online         map[string]struct{}
	lastTypingSent time.Time
	clearTimer     *time.Timer
}

func NewChannel(log *slog.Logger, dialer contract.SocketDialer, presence contract.PresenceAPI,
	handler contract.MessageHandler, opts Options, stats *observability.Stats) *Channel {
	opts = opts.withDefaults()
	return &Channel{
		log:      log,
		dialer:   dialer,
		presence: presence,
		handler:  handler,
		stats:    stats,
		opts:     opts,
		typing:   NewTypingRegistry(opts.TypingTTL),
		online:   make(map[string]struct{}),
	}
}

// Connect targets a room. Already being connected (or connecting) to the
// same room is a no-op. A dial failure is not an error: the channel degrades
// to presence polling and stays usable.
func (c *Channel) Connect(ctx context.Context, roomID string) error {
	c.mu.Lock()
	if c.roomID == roomID && (c.state == domain.Connected || c.state == domain.Connecting) {
		c.mu.Unlock()
		return nil
	}
	c.teardownLocked()
	c.roomID = roomID
	c.state = domain.Connecting

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	// The TTL sweep runs for the whole room scope, push or fallback.
	go func() {
		_ = workers.NewSweepWorker(c.log, c, c.opts.SweepInterval).Run(runCtx)
	}()

	sock, err := c.dialer.Dial(runCtx, roomID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if runCtx.Err() != nil {
		if sock != nil {
			_ = sock.Close()
		}
		return nil
	}
	if err != nil {
		c.log.Warn("Socket unavailable, degrading to presence polling", "room", roomID, "err", err)
		c.fallBackLocked(runCtx)
		return nil
	}

	c.sock = sock
	c.state = domain.Connected
	if err := sock.WriteFrame(event.JoinFrame(roomID)); err != nil {
		c.log.Warn("Join frame failed", "room", roomID, "err", err)
		c.fallBackLocked(runCtx)
		return nil
	}
	go c.readLoop(runCtx, sock, roomID)
	return nil
}

// Reconnect tears the current transport down and retries the push path for
// the same room. Called by owners that want out of FallingBack.
func (c *Channel) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	roomID := c.roomID
	c.teardownLocked()
	c.state = domain.Disconnected
	c.roomID = ""
	c.mu.Unlock()
	if roomID == "" {
		return nil
	}
	c.stats.IncrReconnects()
	return c.Connect(ctx, roomID)
}

// Close shuts the transport, clears every timer, and forgets the room.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
	c.roomID = ""
	c.state = domain.Disconnected
}

// teardownLocked releases the previous scope: socket, read loop, pollers,
// and the typing auto-clear timer. Callers hold c.mu.
func (c *Channel) teardownLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.sock != nil {
		_ = c.sock.Close()
		c.sock = nil
	}
	if c.clearTimer != nil {
		c.clearTimer.Stop()
		c.clearTimer = nil
	}
	c.typing.Reset()
	c.online = make(map[string]struct{})
	c.lastTypingSent = time.Time{}
}

func (c *Channel) readLoop(ctx context.Context, sock contract.Socket, roomID string) {
	for {
		frame, err := sock.ReadFrame()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.mu.Lock()
			// Degrade only if this socket is still the active transport.
			if c.sock == sock && c.roomID == roomID {
				c.log.Warn("Socket lost, degrading to presence polling", "room", roomID, "err", err)
				c.sock = nil
				c.fallBackLocked(ctx)
			}
			c.mu.Unlock()
			return
		}
		c.dispatch(frame)
	}
}

// fallBackLocked flips to the polling transport. Lost in-flight events are
// not resubmitted; the stream's backstop poll covers missed messages.
func (c *Channel) fallBackLocked(ctx context.Context) {
	c.state = domain.FallingBack
	c.stats.IncrFallbacks()
	if c.sock != nil {
		_ = c.sock.Close()
		c.sock = nil
	}
	go func() {
		_ = workers.NewPresenceWorker(c.log, c, c.opts.PresenceInterval).Run(ctx)
	}()
}

// PollPresence replaces the online set from the fallback endpoint. Presence
// is best-effort: the set is swapped wholesale, never diffed.
func (c *Channel) PollPresence(ctx context.Context) error {
	c.mu.Lock()
	roomID := c.roomID
	c.mu.Unlock()
	if roomID == "" {
		return nil
	}

	users, err := c.presence.Presence(ctx, roomID)
	if err != nil {
		return err
	}
	c.stats.IncrPresencePolls()

	online := make(map[string]struct{}, len(users))
	for _, userID := range users {
		online[userID] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.roomID != roomID {
		return nil
	}
	c.online = online
	return nil
}

// dispatch routes one inbound frame. Unknown types are logged and dropped;
// none of them move the state machine.
func (c *Channel) dispatch(frame event.Frame) {
	switch frame.Type {
	case event.Message:
		c.handleMessage(frame)
	case event.Typing:
		c.handleTyping(frame)
	case event.Presence:
		c.handlePresence(frame)
	case event.RoomUpdate:
		c.log.Info("Room updated by server", "room", frame.RoomID)
	case event.Error:
		var payload event.ErrorPayload
		_ = json.Unmarshal(frame.Data, &payload)
		c.log.Warn("Server error frame", "room", frame.RoomID, "message", payload.Message)
	default:
		c.log.Debug("Dropping unknown frame", "type", frame.Type)
	}
}

func (c *Channel) handleMessage(frame event.Frame) {
	c.mu.Lock()
	roomID := c.roomID
	c.mu.Unlock()
	if frame.RoomID != "" && frame.RoomID != roomID {
		return
	}

	var dto api.MessageDTO
	if err := json.Unmarshal(frame.Data, &dto); err != nil {
		c.log.Warn("Undecodable message frame", "err", err)
		return
	}
	c.handler.OnInbound(dto.ToDomain())
}

func (c *Channel) handleTyping(frame event.Frame) {
	var payload event.TypingPayload
	if err := json.Unmarshal(frame.Data, &payload); err != nil {
		c.log.Warn("Undecodable typing frame", "err", err)
		return
	}
	userID := payload.UserID
	if userID == "" {
		userID = frame.UserID
	}
	c.typing.Apply(domain.TypingIndicator{
		RoomID:      frame.RoomID,
		UserID:      userID,
		UserName:    payload.UserName,
		IsTyping:    payload.IsTyping,
		RefreshedAt: time.Now(),
	})
}

func (c *Channel) handlePresence(frame event.Frame) {
	var payload event.PresencePayload
	if err := json.Unmarshal(frame.Data, &payload); err != nil {
		c.log.Warn("Undecodable presence frame", "err", err)
		return
	}
	userID := payload.UserID
	if userID == "" {
		userID = frame.UserID
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if payload.Online {
		c.online[userID] = struct{}{}
	} else {
		delete(c.online, userID)
	}
}

// SendTyping emits the local user's typing state, at most once per rate
// window. A true emission arms a timer that auto-emits false after the
// configured silence.
func (c *Channel) SendTyping(isTyping bool) error {
	c.mu.Lock()
	if c.state != domain.Connected || c.sock == nil {
		c.mu.Unlock()
		return nil
	}
	now := time.Now()
	if now.Sub(c.lastTypingSent) < c.opts.TypingRateLimit {
		c.mu.Unlock()
		return nil
	}
	c.lastTypingSent = now
	sock := c.sock
	roomID := c.roomID

	if isTyping {
		if c.clearTimer != nil {
			c.clearTimer.Stop()
		}
		c.clearTimer = time.AfterFunc(c.opts.TypingAutoClear, func() {
			_ = c.SendTyping(false)
		})
	} else if c.clearTimer != nil {
		c.clearTimer.Stop()
		c.clearTimer = nil
	}
	c.mu.Unlock()

	return sock.WriteFrame(event.TypingFrame(roomID, isTyping))
}

// State returns the current transport state.
func (c *Channel) State() domain.ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Sweep expires stale typing indicators; wired to the sweep worker.
func (c *Channel) Sweep(now time.Time) int {
	expired := c.typing.Sweep(now)
	if expired > 0 {
		c.stats.IncrTypingSweeps()
	}
	return expired
}

// Typing returns the active remote typing indicators.
func (c *Channel) Typing() []domain.TypingIndicator {
	return c.typing.Active()
}

// OnlineUsers returns the current best-effort online set.
func (c *Channel) OnlineUsers() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.online))
	for userID := range c.online {
		out = append(out, userID)
	}
	return out
}
