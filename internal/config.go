package internal

import "time"

type Config struct {
	ServerURL     string `env:"CHAT_SERVER_URL,default=http://localhost:8080"`
	CSRFToken     string `env:"CHAT_CSRF_TOKEN"`
	UserID        string `env:"CHAT_USER_ID,required=true"`
	UserName      string `env:"CHAT_USER_NAME,required=true"`
	AvatarURL     string `env:"CHAT_AVATAR_URL"`
	DefaultRoomID string `env:"CHAT_ROOM_ID"`
	LogLevel      string `env:"LOG_LEVEL,default=INFO"`

	RoomRefreshInterval  time.Duration `env:"ROOM_REFRESH_INTERVAL,default=5s"`
	MessagePollInterval  time.Duration `env:"MESSAGE_POLL_INTERVAL,default=3s"`
	PresencePollInterval time.Duration `env:"PRESENCE_POLL_INTERVAL,default=3s"`
	TypingTTL            time.Duration `env:"TYPING_TTL,default=5s"`
	TypingSweepInterval  time.Duration `env:"TYPING_SWEEP_INTERVAL,default=1s"`
	TypingRateLimit      time.Duration `env:"TYPING_RATE_LIMIT,default=1s"`
	TypingAutoClear      time.Duration `env:"TYPING_AUTO_CLEAR,default=3s"`

	PageLimit int `env:"PAGE_LIMIT,default=50"`
	DebugPort int `env:"DEBUG_PORT,default=8081"`
}
