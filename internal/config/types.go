package config

// Config is the on-disk configuration (JSON or YAML).
//
// Every section is optional; ApplyDefaults fills in what a bare
// environment-only deployment needs (TELEGRAM_BOT_TOKEN + TELEGRAM_CHANNEL_ID).
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
	Notifier NotifierConfig `json:"notifier"`
	Watch    WatchConfig    `json:"watch"`
}

type TelegramConfig struct {
	Token string `json:"token,omitempty"`
	// Channel is the destination chat: a numeric id ("-1001234567890") or a
	// public username ("@shopfeed").
	Channel  string `json:"channel,omitempty"`
	ThreadID int    `json:"thread_id,omitempty"`

	// GroupLog is an optional operator chat receiving WARN+ log lines.
	GroupLog    string `json:"group_log,omitempty"`
	LogThreadID int    `json:"log_thread_id,omitempty"`

	// PollTimeout is a Go duration string (e.g. "10s").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  *bool           `json:"console,omitempty"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// StorageConfig selects the snapshot backend.
//
// Example:
//
//	storage: { driver: file, path: ./state }
//
// With the file driver, Path is a directory holding one <state_key>.json
// file per watcher. With sqlite, Path is the database file.
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

// NotifierConfig paces chat delivery. Durations are Go duration strings.
type NotifierConfig struct {
	RatePerSec  float64 `json:"rate_per_sec"`
	Burst       int     `json:"burst"`
	SendTimeout string  `json:"send_timeout"`
	HistorySize int     `json:"history_size"`
}

type WatchConfig struct {
	// Schedule is the pause between the end of one cycle and the start of the
	// next: "45s", "01:30", "@every 1m" or a cron expression.
	Schedule     string `json:"schedule"`
	FetchTimeout string `json:"fetch_timeout"`
	MaxBodyBytes int64  `json:"max_body_bytes,omitempty"`
	MaxDepth     int    `json:"max_depth,omitempty"`
	UserAgent    string `json:"user_agent,omitempty"`

	Shop   ShopWatchConfig  `json:"shop"`
	Assets AssetWatchConfig `json:"assets"`
}

type ShopWatchConfig struct {
	Enabled  *bool  `json:"enabled,omitempty"`
	Endpoint string `json:"endpoint"`
	StateKey string `json:"state_key"`
}

type AssetWatchConfig struct {
	Enabled   *bool    `json:"enabled,omitempty"`
	Endpoints []string `json:"endpoints"`
	StateKey  string   `json:"state_key"`
	// PlaceholderBase prefixes the codename of a merged billboard group that
	// has no figure asset.
	PlaceholderBase string `json:"placeholder_base"`
}

func (c ShopWatchConfig) On() bool  { return c.Enabled == nil || *c.Enabled }
func (c AssetWatchConfig) On() bool { return c.Enabled == nil || *c.Enabled }
func (c LoggingConfig) ConsoleOn() bool {
	return c.Console == nil || *c.Console
}
