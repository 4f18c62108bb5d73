package logx

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	kit "contentwatch/internal/transport"
	"contentwatch/pkg/tgui"
)

const (
	chatQueueSize   = 256
	chatSendTimeout = 10 * time.Second
	repeatWindow    = time.Minute
	maxChatFields   = 12
)

type chatLine struct {
	to   kit.ChatTarget
	html string
}

// repeat tracks one event signature inside the fold window.
type repeat struct {
	since  time.Time
	folded int
}

// chatSink is a zerolog LevelWriter posting events to the operator chat.
// Writes never block: lines are dropped when the queue is full or the rate
// limit is exhausted.
type chatSink struct {
	mu      sync.Mutex
	sender  kit.Adapter
	target  kit.ChatTarget
	min     zerolog.Level
	limiter *rate.Limiter
	seen    map[string]*repeat
	now     func() time.Time

	queue  chan chatLine
	start  sync.Once
	cancel context.CancelFunc
	done   chan struct{}
}

func newChatSink(sender kit.Adapter) *chatSink {
	return &chatSink{
		sender: sender,
		min:    LevelWarn,
		seen:   make(map[string]*repeat),
		now:    time.Now,
		queue:  make(chan chatLine, chatQueueSize),
	}
}

func (c *chatSink) setSender(a kit.Adapter) {
	c.mu.Lock()
	c.sender = a
	c.mu.Unlock()
}

func (c *chatSink) setTarget(to kit.ChatTarget) {
	c.mu.Lock()
	c.target = to
	c.mu.Unlock()
}

func (c *chatSink) configure(cfg TelegramConfig) {
	rps := max(1, cfg.RatePerSec)
	c.mu.Lock()
	c.min = ParseLevel(cfg.MinLevel, LevelWarn)
	c.limiter = rate.NewLimiter(rate.Limit(rps), rps)
	c.mu.Unlock()
}

// ready starts the sender goroutine on first use. It reports false without a
// sender.
func (c *chatSink) ready() bool {
	c.mu.Lock()
	ok := c.sender != nil
	c.mu.Unlock()
	if ok {
		c.start.Do(func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			c.mu.Lock()
			c.cancel, c.done = cancel, done
			c.mu.Unlock()
			go c.run(ctx, done)
		})
	}
	return ok
}

func (c *chatSink) close() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func (c *chatSink) Write(p []byte) (int, error) { return c.WriteLevel(LevelInfo, p) }

func (c *chatSink) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if line, ok := c.admit(level, p); ok {
		select {
		case c.queue <- line:
		default:
		}
	}
	return len(p), nil
}

// admit filters one encoded event and renders it when it should be posted.
func (c *chatSink) admit(level zerolog.Level, p []byte) (chatLine, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target.IsZero() || level < c.min {
		return chatLine{}, false
	}

	var ev map[string]any
	if err := json.Unmarshal(p, &ev); err != nil {
		ev = map[string]any{"message": strings.TrimSpace(string(p))}
	}

	now := c.now()
	sig := signature(level, ev)
	r := c.seen[sig]
	if r != nil && now.Sub(r.since) < repeatWindow {
		r.folded++
		return chatLine{}, false
	}
	if c.limiter != nil && !c.limiter.Allow() {
		return chatLine{}, false
	}
	folded := 0
	if r != nil {
		folded = r.folded
	}
	c.seen[sig] = &repeat{since: now}
	c.prune(now)
	return chatLine{to: c.target, html: renderEvent(level, ev, folded)}, true
}

func (c *chatSink) prune(now time.Time) {
	if len(c.seen) < 256 {
		return
	}
	for k, r := range c.seen {
		if now.Sub(r.since) >= repeatWindow {
			delete(c.seen, k)
		}
	}
}

func (c *chatSink) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case line := <-c.queue:
			c.mu.Lock()
			sender := c.sender
			c.mu.Unlock()
			if sender == nil {
				continue
			}
			sctx, cancel := context.WithTimeout(ctx, chatSendTimeout)
			_, _ = sender.SendText(sctx, line.to, line.html, &kit.SendOptions{ParseMode: "HTML", DisablePreview: true})
			cancel()
		}
	}
}

// signature identifies "the same event": level, message, component and
// endpoint. Errors and timings are left out so retries of one failure fold.
func signature(level zerolog.Level, ev map[string]any) string {
	parts := []string{level.String()}
	for _, k := range []string{"message", KeyComp, KeyJob, KeyEndpoint} {
		parts = append(parts, fmt.Sprint(ev[k]))
	}
	return strings.Join(parts, "\x00")
}

func renderEvent(level zerolog.Level, ev map[string]any, folded int) string {
	var m tgui.Msg
	msg, _ := ev["message"].(string)
	m.Line(tgui.Bold(strings.ToUpper(level.String())), tgui.Text(msg))

	keys := make([]string, 0, len(ev))
	for k := range ev {
		switch k {
		case "time", "level", "message":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > maxChatFields {
		keys = keys[:maxChatFields]
	}
	for _, k := range keys {
		m.Line(tgui.Mono(k), tgui.Text(tgui.Clip(fmt.Sprint(ev[k]), 300)))
	}
	if folded > 0 {
		m.Line(tgui.Italic(fmt.Sprintf("+%d similar in the last %s", folded, repeatWindow)))
	}
	return m.String()
}
