package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	kit "contentwatch/internal/transport"
)

func TestWriterFieldsAndCaller(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "debug").With(Comp("fetch"))
	log.Warn("fetch failed", Endpoint("https://x/api"), Err(nil), Int("status", 503))

	var ev map[string]any
	if err := json.Unmarshal(buf.Bytes(), &ev); err != nil {
		t.Fatalf("not json: %q", buf.String())
	}
	if ev["comp"] != "fetch" || ev["endpoint"] != "https://x/api" || ev["level"] != "warn" {
		t.Fatalf("event = %v", ev)
	}
	if _, ok := ev["err"]; ok {
		t.Fatal("nil error should not add a field")
	}
	if c, _ := ev["caller"].(string); !strings.HasPrefix(c, "logx/logx_test.go:") {
		t.Fatalf("caller = %q", c)
	}
}

func TestWithDoesNotAlias(t *testing.T) {
	var buf bytes.Buffer
	base := NewWriter(&buf, "info").With(Comp("a"))
	_ = base.With(Job("x"))
	base.With(Job("y")).Info("m")
	if !strings.Contains(buf.String(), `"job":"y"`) || strings.Contains(buf.String(), `"job":"x"`) {
		t.Fatalf("line = %s", buf.String())
	}
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "WARNING")
	log.Info("hidden")
	log.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("unexpected output %q", buf.String())
	}
	var zero Logger
	zero.Error("discarded")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{"DEBUG": LevelDebug, " info ": LevelInfo, "warn": LevelWarn, "Error": LevelError, "bogus": LevelInfo}
	for in, want := range tests {
		if got := ParseLevel(in, LevelInfo); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func event(msg, endpoint string) []byte {
	b, _ := json.Marshal(map[string]any{"level": "warn", "message": msg, "endpoint": endpoint, "err": "timeout <5s>"})
	return b
}

func TestChatSinkFoldsRepeats(t *testing.T) {
	c := newChatSink(nil)
	c.configure(TelegramConfig{Enabled: true, RatePerSec: 100})
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	if _, ok := c.admit(LevelWarn, event("fetch failed", "a")); ok {
		t.Fatal("no target: should drop")
	}
	c.setTarget(kit.ChatTarget{ChatID: 9})

	if _, ok := c.admit(LevelInfo, event("fetch failed", "a")); ok {
		t.Fatal("info is below the default WARN threshold")
	}
	line, ok := c.admit(LevelWarn, event("fetch failed", "a"))
	if !ok || line.to.ChatID != 9 {
		t.Fatalf("first event dropped: %+v", line)
	}
	if !strings.HasPrefix(line.html, "<b>WARN</b> fetch failed") || !strings.Contains(line.html, "timeout &lt;5s&gt;") {
		t.Fatalf("html = %q", line.html)
	}

	// same event within the window folds; another endpoint does not
	for i := 0; i < 3; i++ {
		if _, ok := c.admit(LevelWarn, event("fetch failed", "a")); ok {
			t.Fatal("repeat should fold")
		}
	}
	if _, ok := c.admit(LevelWarn, event("fetch failed", "b")); !ok {
		t.Fatal("different endpoint should pass")
	}

	now = now.Add(repeatWindow)
	line, ok = c.admit(LevelWarn, event("fetch failed", "a"))
	if !ok || !strings.Contains(line.html, "+3 similar") {
		t.Fatalf("after window: ok=%v html=%q", ok, line.html)
	}
}

type chatRecorder struct {
	got chan string
}

func (r *chatRecorder) Start(context.Context) error { return nil }
func (r *chatRecorder) Stop(context.Context) error  { return nil }
func (r *chatRecorder) Resolve(context.Context, string, int) (kit.ChatTarget, error) {
	return kit.ChatTarget{}, nil
}
func (r *chatRecorder) SendText(_ context.Context, _ kit.ChatTarget, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
	r.got <- text
	return kit.MessageRef{}, nil
}
func (r *chatRecorder) SendNotification(context.Context, kit.ChatTarget, kit.Notification) (kit.MessageRef, error) {
	return kit.MessageRef{}, nil
}
func (r *chatRecorder) HandleCommand(string, string, kit.Command) {}

func TestServiceForwardsToChat(t *testing.T) {
	rec := &chatRecorder{got: make(chan string, 4)}
	cfg := Config{Level: "info", File: FileConfig{Enabled: true, Path: t.TempDir() + "/app.log"}}
	svc, log := New(cfg, nil)
	defer svc.Close()

	svc.SetSender(rec)
	svc.SetTelegramTarget(kit.ChatTarget{ChatID: 1})
	cfg.Telegram = TelegramConfig{Enabled: true, RatePerSec: 10}
	svc.Apply(cfg)

	log.With(Comp("watch")).Info("quiet")
	log.With(Comp("watch")).Error("cycle failed")

	select {
	case text := <-rec.got:
		if !strings.Contains(text, "cycle failed") {
			t.Fatalf("text = %q", text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("error was not forwarded")
	}
	select {
	case text := <-rec.got:
		t.Fatalf("unexpected forward %q", text)
	case <-time.After(50 * time.Millisecond):
	}
}
