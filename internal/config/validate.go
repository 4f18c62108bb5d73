package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrMissingToken   = errors.New("telegram token is required (set " + EnvToken + " or telegram.token)")
	ErrMissingChannel = errors.New("destination channel is required (set " + EnvChannel + " or telegram.channel)")
)

// Validate rejects configs the bot cannot run with. It expects defaults to
// have been applied.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return ErrMissingToken
	}
	if strings.TrimSpace(cfg.Telegram.Channel) == "" {
		return ErrMissingChannel
	}
	if _, err := Duration("telegram.poll_timeout", cfg.Telegram.PollTimeout, 0); err != nil {
		return err
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "file", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("unknown storage.driver: %s", cfg.Storage.Driver)
	}
	if _, err := Duration("storage.busy_timeout", cfg.Storage.BusyTimeout, 0); err != nil {
		return err
	}

	if _, err := Duration("notifier.send_timeout", cfg.Notifier.SendTimeout, 0); err != nil {
		return err
	}

	w := cfg.Watch
	if _, err := ParseSchedule(w.Schedule); err != nil {
		return fmt.Errorf("watch.schedule: %w", err)
	}
	if _, err := Duration("watch.fetch_timeout", w.FetchTimeout, 0); err != nil {
		return err
	}
	if !w.Shop.On() && !w.Assets.On() {
		return errors.New("at least one of watch.shop or watch.assets must be enabled")
	}
	if w.Shop.On() {
		if err := validateEndpoint("watch.shop.endpoint", w.Shop.Endpoint); err != nil {
			return err
		}
	}
	if w.Assets.On() {
		if len(w.Assets.Endpoints) == 0 {
			return errors.New("watch.assets.endpoints must not be empty")
		}
		seen := map[string]bool{}
		for i, ep := range w.Assets.Endpoints {
			if err := validateEndpoint(fmt.Sprintf("watch.assets.endpoints[%d]", i), ep); err != nil {
				return err
			}
			if seen[ep] {
				return fmt.Errorf("watch.assets.endpoints: duplicate %q", ep)
			}
			seen[ep] = true
		}
	}
	if w.Shop.On() && w.Assets.On() && w.Shop.StateKey == w.Assets.StateKey {
		return errors.New("watch.shop.state_key and watch.assets.state_key must differ")
	}
	return nil
}

func validateEndpoint(path, raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s: scheme must be http or https", path)
	}
	if u.Host == "" {
		return fmt.Errorf("%s: host is required", path)
	}
	return nil
}
