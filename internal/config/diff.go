package config

import (
	"reflect"
	"strings"

	logx "contentwatch/pkg/logx"
)

// Change summarizes a config reload for logging. It never carries secrets.
type Change struct {
	// Sections lists changed top-level sections (and watch sub-sections).
	Sections []string
	Attrs    []logx.Field
	// Restart lists sections whose changes only apply after a restart.
	Restart []string
}

func (c Change) Empty() bool { return len(c.Sections) == 0 }

func SummarizeChange(oldCfg, newCfg *Config) Change {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	var ch Change
	mark := func(section string, restart bool, attrs ...logx.Field) {
		ch.Sections = append(ch.Sections, section)
		ch.Attrs = append(ch.Attrs, attrs...)
		if restart {
			ch.Restart = append(ch.Restart, section)
		}
	}

	ot, nt := oldCfg.Telegram, newCfg.Telegram
	if ot.Token != nt.Token || ot.Channel != nt.Channel || ot.ThreadID != nt.ThreadID ||
		strings.TrimSpace(ot.PollTimeout) != strings.TrimSpace(nt.PollTimeout) {
		mark("telegram", true,
			logx.Bool("telegram.token_changed", ot.Token != nt.Token),
			logx.String("telegram.channel", nt.Channel),
		)
	}
	if ot.GroupLog != nt.GroupLog || ot.LogThreadID != nt.LogThreadID ||
		!reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		mark("logging", false,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.file", newCfg.Logging.File.Enabled),
			logx.Bool("logging.telegram", newCfg.Logging.Telegram.Enabled),
		)
	}
	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		mark("storage", true, logx.String("storage.driver", newCfg.Storage.Driver))
	}
	if !reflect.DeepEqual(oldCfg.Notifier, newCfg.Notifier) {
		mark("notifier", false,
			logx.Float64("notifier.rate_per_sec", newCfg.Notifier.RatePerSec),
			logx.Int("notifier.burst", newCfg.Notifier.Burst),
		)
	}

	ow, nw := oldCfg.Watch, newCfg.Watch
	if ow.Schedule != nw.Schedule {
		mark("watch.schedule", false, logx.String("watch.schedule", nw.Schedule))
	}
	if ow.FetchTimeout != nw.FetchTimeout || ow.MaxBodyBytes != nw.MaxBodyBytes ||
		ow.MaxDepth != nw.MaxDepth || ow.UserAgent != nw.UserAgent {
		mark("watch.fetch", true)
	}
	if !reflect.DeepEqual(ow.Shop, nw.Shop) {
		mark("watch.shop", true, logx.Bool("watch.shop.enabled", nw.Shop.On()))
	}
	if !reflect.DeepEqual(ow.Assets, nw.Assets) {
		mark("watch.assets", true,
			logx.Bool("watch.assets.enabled", nw.Assets.On()),
			logx.Int("watch.assets.endpoints", len(nw.Assets.Endpoints)),
		)
	}
	return ch
}
