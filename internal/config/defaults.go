package config

import (
	"os"
	"strconv"
	"strings"
)

const (
	DefaultShopEndpoint    = "https://fortnitecontent-website-prod07.ol.epicgames.com/content/api/pages/fortnite-game/mp-item-shop"
	DefaultVisualsEndpoint = "https://fortnitecontent-website-prod07.ol.epicgames.com/content/api/pages/fortnite-game/shopoffervisuals"

	DefaultSchedule        = "45s"
	DefaultFetchTimeout    = "10s"
	DefaultMaxDepth        = 128
	DefaultMaxBodyBytes    = 32 << 20
	DefaultPlaceholderBase = "https://merged-assets/"

	EnvToken    = "TELEGRAM_BOT_TOKEN"
	EnvChannel  = "TELEGRAM_CHANNEL_ID"
	EnvThreadID = "TELEGRAM_THREAD_ID"
)

// ApplyEnv overrides credentials and destination from the process
// environment. Environment values win over the config file so the token can
// stay out of it.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.TrimSpace(getenv(EnvToken)); v != "" {
		cfg.Telegram.Token = v
	}
	if v := strings.TrimSpace(getenv(EnvChannel)); v != "" {
		cfg.Telegram.Channel = v
	}
	if v := strings.TrimSpace(getenv(EnvThreadID)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Telegram.ThreadID = n
		}
	}
}

// ApplyDefaults fills zero values in place.
func ApplyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = "INFO"
	}
	if cfg.Logging.Telegram.RatePerSec <= 0 {
		cfg.Logging.Telegram.RatePerSec = 1
	}

	if strings.TrimSpace(cfg.Storage.Driver) == "" {
		cfg.Storage.Driver = "file"
	}
	if strings.TrimSpace(cfg.Storage.Path) == "" {
		switch strings.ToLower(cfg.Storage.Driver) {
		case "sqlite", "sqlite3":
			cfg.Storage.Path = "./contentwatch.db"
		default:
			cfg.Storage.Path = "."
		}
	}

	if cfg.Notifier.RatePerSec <= 0 {
		cfg.Notifier.RatePerSec = 1
	}
	if cfg.Notifier.Burst <= 0 {
		cfg.Notifier.Burst = 5
	}
	if strings.TrimSpace(cfg.Notifier.SendTimeout) == "" {
		cfg.Notifier.SendTimeout = "10s"
	}
	if cfg.Notifier.HistorySize <= 0 {
		cfg.Notifier.HistorySize = 50
	}

	w := &cfg.Watch
	if strings.TrimSpace(w.Schedule) == "" {
		w.Schedule = DefaultSchedule
	}
	if strings.TrimSpace(w.FetchTimeout) == "" {
		w.FetchTimeout = DefaultFetchTimeout
	}
	if w.MaxDepth <= 0 {
		w.MaxDepth = DefaultMaxDepth
	}
	if w.MaxBodyBytes <= 0 {
		w.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if strings.TrimSpace(w.UserAgent) == "" {
		w.UserAgent = "contentwatch/1.0"
	}
	if strings.TrimSpace(w.Shop.Endpoint) == "" {
		w.Shop.Endpoint = DefaultShopEndpoint
	}
	if strings.TrimSpace(w.Shop.StateKey) == "" {
		w.Shop.StateKey = "shop_sections"
	}
	if len(w.Assets.Endpoints) == 0 {
		w.Assets.Endpoints = []string{DefaultShopEndpoint, DefaultVisualsEndpoint}
	}
	if strings.TrimSpace(w.Assets.StateKey) == "" {
		w.Assets.StateKey = "previous_assets"
	}
	if strings.TrimSpace(w.Assets.PlaceholderBase) == "" {
		w.Assets.PlaceholderBase = DefaultPlaceholderBase
	}
}
