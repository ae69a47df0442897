package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"chat-sync/directory"
	"chat-sync/domain"
	"chat-sync/infrastructure/api"
	infra "chat-sync/infrastructure/realtime"
	"chat-sync/internal"
	"chat-sync/observability"
	"chat-sync/realtime"
	"chat-sync/reconcile"
	"chat-sync/runtime"
	"chat-sync/stream"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function manages the OS exit code based on run()'s return.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run builds the full engine, selects the configured room, and tails the
// timeline to the log until a termination signal arrives.
func run() (int, error) {
	// 1. Load configuration from environment variables.
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Assemble the engine around one HTTP client and one socket dialer.
	stats := observability.NewStats()
	client := api.NewClient(&http.Client{}, config.ServerURL, config.CSRFToken, log)
	self := domain.Identity{
		UserID:    config.UserID,
		UserName:  config.UserName,
		AvatarURL: config.AvatarURL,
	}

	dir := directory.NewDirectory(log, client, stats)
	str := stream.NewStream(log, client, self, config.PageLimit, stats)
	reconciler := reconcile.NewEngine(log, str, self)
	channel := realtime.NewChannel(log, infra.NewDialer(config.ServerURL), client, reconciler,
		realtime.Options{
			PresenceInterval: config.PresencePollInterval,
			TypingTTL:        config.TypingTTL,
			SweepInterval:    config.TypingSweepInterval,
			TypingRateLimit:  config.TypingRateLimit,
			TypingAutoClear:  config.TypingAutoClear,
		}, stats)

	engine := runtime.NewEngine(log, dir, str, channel, reconciler,
		config.RoomRefreshInterval, config.MessagePollInterval)
	engine.Start(ctx)
	defer engine.Stop()

	if log.Enabled(ctx, slog.LevelDebug) {
		endpoint := "/inspect"
		log.Info("Debug inspector available",
			"url", fmt.Sprintf("http://localhost:%d%s", config.DebugPort, endpoint))
		internal.StartDebugServer(config.DebugPort, endpoint, func() map[string]any {
			return map[string]any{
				"room":    engine.RoomID(),
				"channel": engine.Channel().State().String(),
				"stats":   stats.GetLatest(),
			}
		})
	}

	if config.DefaultRoomID != "" {
		engine.OnRoomChange(config.DefaultRoomID)
	}

	log.Info(fmt.Sprintf(">>> Connected to %s! Listening Room %q (Ctrl+C to quit)...",
		config.ServerURL, config.DefaultRoomID))

	// 4. Tail the timeline: log every message once as it lands.
	seen := make(map[domain.MessageID]struct{})
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping client...")
			return exitOK, nil
		case <-ticker.C:
			for _, msg := range engine.Stream().Messages() {
				if _, ok := seen[msg.ID]; ok {
					continue
				}
				seen[msg.ID] = struct{}{}
				log.Info(fmt.Sprintf("[%s] %s: %s",
					msg.CreatedAt.Format(time.TimeOnly),
					msg.SenderName,
					msg.Content,
				))
			}
		}
	}
}
