package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"contentwatch/internal/config"
	"contentwatch/internal/diff"
	"contentwatch/internal/extract"
	"contentwatch/internal/fetch"
	"contentwatch/internal/notifier"
	"contentwatch/internal/runtime/supervisor"
	"contentwatch/internal/storage"
	kit "contentwatch/internal/transport"
	telegram "contentwatch/internal/transport/telegram/adapter"
	"contentwatch/internal/watch"
	logx "contentwatch/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	store storage.Store

	adapter kit.Adapter
	notif   *notifier.Service
	loop    *watch.Loop
}

// NewApp loads and validates the configuration and builds every component.
// Missing credentials and a token Telegram rejects fail here.
func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	// Telegram logging stays off until the operator chat is resolved in Start.
	bootCfg := mapLogConfig(cfg)
	bootCfg.Telegram.Enabled = false
	logSvc, log := logx.New(bootCfg, nil)
	log = log.With(logx.Comp("app"))

	adCfg, err := mapAdapterConfig(cfg)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(adCfg, logSvc.Logger().With(logx.Comp("telegram")))
	if err != nil {
		return nil, err
	}
	logSvc.SetSender(ad)

	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(sc, log.With(logx.Comp("storage")))
	if err != nil {
		return nil, err
	}
	log.Info("storage ready", logx.String("driver", sc.Driver), logx.String("path", sc.Path))

	ncfg, err := mapNotifierConfig(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	notif := notifier.New(ncfg, ad, kit.ChatTarget{}, log.With(logx.Comp("notifier")))

	loop, err := buildLoop(cfg, store, notif, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &App{
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		store:   store,
		adapter: ad,
		notif:   notif,
		loop:    loop,
	}, nil
}

func buildLoop(cfg *config.Config, store storage.Store, d watch.Deliverer, log logx.Logger) (*watch.Loop, error) {
	fcfg, err := mapFetchConfig(cfg)
	if err != nil {
		return nil, err
	}
	client := fetch.New(fcfg, &http.Client{}, log.With(logx.Comp("fetch")))

	sched, err := config.ParseSchedule(cfg.Watch.Schedule)
	if err != nil {
		return nil, fmt.Errorf("watch.schedule: %w", err)
	}

	var jobs []watch.Job
	if w := cfg.Watch.Shop; w.On() {
		snap := watch.NewSnapshot(store, w.StateKey,
			func() []extract.Section { return []extract.Section{} },
			log.With(logx.Comp("snapshot.shop")))
		jobs = append(jobs, watch.NewShopWatcher(w.Endpoint, client, d, snap))
	}
	if w := cfg.Watch.Assets; w.On() {
		snap := watch.NewSnapshot(store, w.StateKey,
			func() diff.AssetSnapshot { return diff.AssetSnapshot{} },
			log.With(logx.Comp("snapshot.assets")))
		jobs = append(jobs, watch.NewAssetWatcher(watch.AssetOptions{
			Endpoints:       w.Endpoints,
			MaxDepth:        cfg.Watch.MaxDepth,
			PlaceholderBase: w.PlaceholderBase,
		}, client, d, snap))
	}
	if len(jobs) == 0 {
		return nil, errors.New("no watcher enabled")
	}
	return watch.NewLoop(sched, log.With(logx.Comp("watch")), jobs...), nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Start resolves the destination chat, then starts polling, the watch loop
// and config hot reload. Failing to resolve the destination is fatal.
func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	a.cfgm.SetLogger(a.log.With(logx.Comp("config")))
	cfg := a.cfgm.Get()

	rctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	target, err := a.adapter.Resolve(rctx, cfg.Telegram.Channel, cfg.Telegram.ThreadID)
	cancel()
	if err != nil {
		return fmt.Errorf("destination channel: %w", err)
	}
	a.notif.SetTarget(target)
	a.applyLogging(ctx, cfg)

	a.adapter.HandleCommand("status", "Watcher status and recent notifications", func(context.Context) string {
		return a.statusReply()
	})
	if err := a.adapter.Start(a.sup.Context()); err != nil {
		return err
	}

	a.sup.GoRestart("watch.loop", a.loop.Run,
		supervisor.WithRestartBackoff(time.Second, time.Minute),
	)

	// hot reload config fan-out
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				a.applyReload(c, lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started",
		logx.Int64("chat_id", target.ChatID),
		logx.Int("thread_id", target.ThreadID),
		logx.String("schedule", cfg.Watch.Schedule),
	)
	return nil
}

// applyLogging resolves the operator log chat, if one is configured. The chat
// sink stays off when it does not resolve.
func (a *App) applyLogging(ctx context.Context, cfg *config.Config) {
	var to kit.ChatTarget
	if ref := strings.TrimSpace(cfg.Telegram.GroupLog); ref != "" {
		rctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		t, err := a.adapter.Resolve(rctx, ref, cfg.Telegram.LogThreadID)
		cancel()
		if err != nil {
			a.log.Warn("log chat not resolved; telegram logging disabled", logx.String("group_log", ref), logx.Err(err))
		} else {
			to = t
		}
	}
	a.logs.SetTelegramTarget(to)

	lc := mapLogConfig(cfg)
	if to.IsZero() {
		lc.Telegram.Enabled = false
	}
	a.logs.Apply(lc)
}

func (a *App) applyReload(ctx context.Context, oldCfg, newCfg *config.Config) {
	ch := config.SummarizeChange(oldCfg, newCfg)
	if ch.Empty() {
		a.log.Info("config reloaded (no changes)")
		return
	}
	fields := append([]logx.Field{logx.String("changed", strings.Join(ch.Sections, ","))}, ch.Attrs...)
	a.log.Debug("config change summary", fields...)

	if len(ch.Restart) > 0 {
		a.log.Warn("restart required for changes to take effect", logx.Strings("sections", ch.Restart))
	}

	for _, s := range ch.Sections {
		switch s {
		case "logging":
			a.applyLogging(ctx, newCfg)
		case "notifier":
			ncfg, err := mapNotifierConfig(newCfg)
			if err != nil {
				a.log.Warn("invalid notifier config; keeping previous", logx.Err(err))
				continue
			}
			a.notif.Apply(ncfg)
		case "watch.schedule":
			sched, err := config.ParseSchedule(newCfg.Watch.Schedule)
			if err != nil {
				a.log.Warn("invalid schedule; keeping previous", logx.Err(err))
				continue
			}
			a.loop.SetSchedule(sched)
		}
	}

	a.log.Info("config reloaded", fields...)
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	// First, cancel the app run context so background loops start unwinding immediately.
	a.sup.Cancel()

	// Helper: run a shutdown step with an upper bound so one component can't stall the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		if dl, ok := ctx.Deadline(); ok {
			if rem := time.Until(dl); rem < max {
				max = rem
			}
		}
		if max <= 0 {
			a.log.Warn("stop step skipped (deadline reached)", logx.String("name", name))
			return
		}
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Duration("elapsed", time.Since(start)),
			)
		}
	}

	step("adapter", 2*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	// Wait for the watch loop to finish its current step before closing storage.
	step("supervisor", 5*time.Second, func(c context.Context) error {
		err := a.sup.Wait(c)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	step("storage", time.Second, func(context.Context) error { return a.store.Close() })

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}
