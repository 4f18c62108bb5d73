package adapter

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	rtsup "contentwatch/internal/runtime/supervisor"
	kit "contentwatch/internal/transport"
	logx "contentwatch/pkg/logx"
	"contentwatch/pkg/tgui"
)

type Config struct {
	Token       string
	PollTimeout time.Duration
}

type command struct {
	description string
	fn          kit.Command
}

type Adapter struct {
	cfg Config
	log logx.Logger

	bot     *tele.Bot
	runMu   sync.Mutex
	running bool

	// sup owns the poll loop. It is created on Start() and cancelled on Stop().
	sup *rtsup.Supervisor

	cmdMu    sync.Mutex
	commands map[string]command

	menuMu   sync.Mutex
	menuHash uint64
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Adapter{
		cfg:      cfg,
		log:      log,
		bot:      b,
		commands: map[string]command{},
	}, nil
}

// HandleCommand registers a slash command replying with fn's HTML output in
// the chat (and thread) it was issued from.
func (a *Adapter) HandleCommand(name, description string, fn kit.Command) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" || fn == nil {
		return
	}
	a.cmdMu.Lock()
	a.commands[name] = command{description: description, fn: fn}
	a.cmdMu.Unlock()

	a.bot.Handle("/"+name, func(c tele.Context) error {
		m := c.Message()
		if m == nil || m.Chat == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		reply := fn(ctx)
		to := kit.ChatTarget{ChatID: m.Chat.ID, ThreadID: m.ThreadID}
		_, err := a.SendText(ctx, to, reply, &kit.SendOptions{ParseMode: tele.ModeHTML, DisablePreview: true})
		if err != nil {
			a.log.Warn("command reply failed", logx.String("command", name), logx.Err(err))
		}
		return nil
	})
}

func (a *Adapter) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return nil
	}
	a.running = true
	a.sup = rtsup.New(ctx,
		rtsup.WithLogger(a.log.With(logx.Comp("telegram.adapter"))),
		// adapter errors should not take down the whole app; treat as best-effort.
		rtsup.WithCancelOnError(false),
	)
	sup := a.sup
	a.runMu.Unlock()

	// Ensure we stop telebot when the adapter context is cancelled.
	sup.Go0("telebot.stop_on_cancel", func(c context.Context) {
		<-c.Done()
		a.bot.Stop()
	})

	// Telebot's Start() is a long-running loop. In some failure modes it can
	// exit unexpectedly; run it under a restart loop so the adapter self-heals.
	sup.GoRestart("telebot.poll", func(c context.Context) error {
		a.log.Info("polling started")
		a.bot.Start()
		a.log.Info("polling stopped")
		return c.Err()
	},
		rtsup.WithRestartBackoff(500*time.Millisecond, 10*time.Second),
		// Restart if Start() returns while context is still active.
		rtsup.WithStopOnCleanExit(false),
	)

	if err := a.UpdateMenuCommands(ctx); err != nil {
		a.log.Warn("menu commands not updated", logx.Err(err))
	}
	return nil
}

func (a *Adapter) Stop(ctx context.Context) error {
	// Best-effort graceful stop. Never block shutdown for too long on Telegram long-poll.
	a.runMu.Lock()
	sup := a.sup
	a.sup = nil
	wasRunning := a.running
	a.running = false
	a.runMu.Unlock()

	if !wasRunning {
		a.log.Debug("telegram stop called but not running")
		return nil
	}
	a.log.Info("stopping")
	// Cancelling the supervisor stops telebot via telebot.stop_on_cancel.
	sup.Cancel()

	// Grace window: keep shutdown snappy even if getUpdates long-poll is still waiting.
	grace := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem > 0 && rem < grace {
			grace = rem
		}
	}
	wctx, cancel := context.WithTimeout(ctx, grace)
	defer cancel()

	if err := sup.Wait(wctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			a.log.Warn("telegram stop timed out", logx.Err(err))
			return nil
		}
		a.log.Debug("telegram stopped with supervisor error", logx.Err(err))
	}
	return nil
}

// Resolve accepts a numeric chat id or an @username and checks that the bot
// can see the chat.
func (a *Adapter) Resolve(ctx context.Context, ref string, threadID int) (kit.ChatTarget, error) {
	if err := ctx.Err(); err != nil {
		return kit.ChatTarget{}, err
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return kit.ChatTarget{}, errors.New("chat reference is empty")
	}

	var (
		chat *tele.Chat
		err  error
	)
	if id, perr := strconv.ParseInt(ref, 10, 64); perr == nil {
		chat, err = a.bot.ChatByID(id)
	} else {
		chat, err = a.bot.ChatByUsername("@" + strings.TrimPrefix(ref, "@"))
	}
	if err != nil {
		return kit.ChatTarget{}, fmt.Errorf("resolve chat %q: %w", ref, err)
	}
	a.log.Info("chat resolved", logx.String("ref", ref), logx.Int64("chat_id", chat.ID), logx.String("title", chat.Title))
	return kit.ChatTarget{ChatID: chat.ID, ThreadID: threadID}, nil
}

func (a *Adapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	if opt == nil {
		opt = &kit.SendOptions{}
	}
	return a.sendChunks(ctx, to, text, &tele.SendOptions{
		ParseMode:             opt.ParseMode,
		DisableWebPagePreview: opt.DisablePreview,
		ThreadID:              to.ThreadID,
	})
}

func (a *Adapter) sendChunks(ctx context.Context, to kit.ChatTarget, text string, sendOpt *tele.SendOptions) (kit.MessageRef, error) {
	chunks := splitTelegramText(text, telegramTextLimit, sendOpt.ParseMode)
	if len(chunks) == 0 {
		chunks = []string{""}
	}
	chat := &tele.Chat{ID: to.ChatID}

	var first kit.MessageRef
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return first, err
		}
		opt := *sendOpt
		// Attach markup only to the first message.
		if i > 0 {
			opt.ReplyMarkup = nil
		}
		msg, err := a.bot.Send(chat, chunk, &opt)
		if err != nil {
			return first, err
		}
		if i == 0 {
			first = kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: msg.ID}
		}
	}
	return first, nil
}

// SendNotification posts n as a photo with an HTML caption when it carries an
// image and the caption fits, otherwise as a text message. A rejected photo
// (Telegram cannot fetch or decode the URL) falls back to text.
func (a *Adapter) SendNotification(ctx context.Context, to kit.ChatTarget, n kit.Notification) (kit.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return kit.MessageRef{}, err
	}
	body := renderNotification(n)

	var markup *tele.ReplyMarkup
	if n.ImageURL != "" {
		markup = tgui.LinkKeyboard("Open image", n.ImageURL)
	}

	if n.ImageURL != "" && captionFits(body) {
		photo := &tele.Photo{File: tele.FromURL(n.ImageURL), Caption: body}
		msg, err := a.bot.Send(&tele.Chat{ID: to.ChatID}, photo, &tele.SendOptions{
			ParseMode:   tele.ModeHTML,
			ThreadID:    to.ThreadID,
			ReplyMarkup: markup,
		})
		if err == nil {
			return kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: msg.ID}, nil
		}
		if ctx.Err() != nil {
			return kit.MessageRef{}, ctx.Err()
		}
		a.log.Debug("photo rejected, sending as text", logx.String("image", n.ImageURL), logx.Err(err))
	}

	return a.sendChunks(ctx, to, body, &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: n.ImageURL == "",
		ThreadID:              to.ThreadID,
		ReplyMarkup:           markup,
	})
}

// UpdateMenuCommands publishes the registered commands to the client menu.
// It only calls Telegram when the list changed since the last success.
func (a *Adapter) UpdateMenuCommands(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.cmdMu.Lock()
	cmds := make([]tele.Command, 0, len(a.commands))
	for name, c := range a.commands {
		d := c.description
		if d == "" {
			d = name
		}
		cmds = append(cmds, tele.Command{Text: name, Description: tgui.Clip(d, 256)})
	}
	a.cmdMu.Unlock()
	if len(cmds) == 0 {
		return nil
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Text < cmds[j].Text })

	h := fnv.New64a()
	for _, c := range cmds {
		fmt.Fprintf(h, "%s\x00%s\x00", c.Text, c.Description)
	}
	sum := h.Sum64()

	a.menuMu.Lock()
	defer a.menuMu.Unlock()
	if sum == a.menuHash {
		return nil
	}
	if err := a.bot.SetCommands(cmds); err != nil {
		return fmt.Errorf("set commands: %w", err)
	}
	a.menuHash = sum
	a.log.Info("menu commands updated", logx.Int("count", len(cmds)))
	return nil
}
