package config

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`

	// Push controls the per-tenant push cycle defaults and bounds.
	Push PushConfig `json:"push"`

	// Notify controls the outbound tenant message queue.
	Notify NotifyConfig `json:"notify"`

	// Storage controls the optional push audit log.
	Storage *StorageConfig `json:"storage,omitempty"`

	// Debug controls the optional pprof/liveness HTTP listener.
	Debug *DebugConfig `json:"debug,omitempty"`
}

type TelegramConfig struct {
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingTelegram forwards warn+ log records to an ops chat.
// The bot token is shared with the main transport.
type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ChatID     int64  `json:"chat_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// PushConfig holds per-tenant defaults and the per-push bound.
//
// All durations are Go duration strings (e.g. "30s", "1m").
// DefaultInterval and DefaultFile seed new tenants only; existing tenants
// keep whatever they configured.
type PushConfig struct {
	Timeout         string `json:"timeout"`
	DefaultFile     string `json:"default_file"`
	DefaultInterval string `json:"default_interval"`
}

// NotifyConfig controls the async outbound message queue.
type NotifyConfig struct {
	QueueSize  int `json:"queue_size"`
	RatePerSec int `json:"rate_per_sec"`
}

// StorageConfig controls the optional persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./streakbot-audit" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// DebugConfig controls the pprof/liveness listener. The listener binds once
// at startup; changing this section takes effect on restart.
// A non-loopback addr requires token.
type DebugConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
	Token   string `json:"token,omitempty"`
}

// Default returns the built-in configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Telegram: TelegramConfig{PollTimeout: "10s"},
		Logging: LoggingConfig{
			Level:   "INFO",
			Console: true,
			Telegram: LoggingTelegram{
				MinLevel:   "WARN",
				RatePerSec: 1,
			},
		},
		Push: PushConfig{
			Timeout:         "30s",
			DefaultFile:     "log.md",
			DefaultInterval: "60s",
		},
		Notify: NotifyConfig{
			QueueSize:  128,
			RatePerSec: 25,
		},
	}
}
