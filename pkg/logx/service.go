package logx

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	kit "contentwatch/internal/transport"
)

type Config struct {
	Level    string
	Console  bool
	File     FileConfig
	Telegram TelegramConfig
}

type FileConfig struct {
	Enabled bool
	Path    string
}

// TelegramConfig drives the chat sink. MinLevel defaults to WARN.
type TelegramConfig struct {
	Enabled    bool
	MinLevel   string
	RatePerSec int
}

const defaultLogFile = "./contentwatch.log"

// Service owns the sinks. Loggers derived from it follow every Apply.
type Service struct {
	mu       sync.Mutex
	file     *os.File
	filePath string

	root atomic.Pointer[zerolog.Logger]
	chat *chatSink
}

// New applies cfg and returns the service with its root logger. sender may
// be nil and attached later with SetSender.
func New(cfg Config, sender kit.Adapter) (*Service, Logger) {
	s := &Service{chat: newChatSink(sender)}
	s.Apply(cfg)
	return s, s.Logger()
}

func (s *Service) Logger() Logger { return Logger{svc: s} }

func (s *Service) current() zerolog.Logger {
	if zl := s.root.Load(); zl != nil {
		return *zl
	}
	return zerolog.Nop()
}

// SetSender attaches the chat adapter. It takes effect on the next Apply.
func (s *Service) SetSender(sender kit.Adapter) { s.chat.setSender(sender) }

// SetTelegramTarget sets the operator chat. A zero target mutes the chat
// sink without touching the rest of the config.
func (s *Service) SetTelegramTarget(to kit.ChatTarget) { s.chat.setTarget(to) }

// Apply rebuilds the sinks and swaps the root logger. Safe for concurrent use.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sinks []io.Writer
	if cfg.Console {
		sinks = append(sinks, consoleWriter(os.Stdout))
	}
	if w := s.reopenFile(cfg.File); w != nil {
		sinks = append(sinks, w)
	}
	s.chat.configure(cfg.Telegram)
	if cfg.Telegram.Enabled && s.chat.ready() {
		sinks = append(sinks, s.chat)
	}
	if len(sinks) == 0 {
		sinks = append(sinks, consoleWriter(os.Stdout))
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(sinks...)).
		Level(ParseLevel(cfg.Level, LevelInfo)).
		With().Timestamp().Logger()
	s.root.Store(&zl)
}

// reopenFile keeps the current file when the path is unchanged.
func (s *Service) reopenFile(cfg FileConfig) io.Writer {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		path = defaultLogFile
	}
	if !cfg.Enabled || path != s.filePath {
		if s.file != nil {
			_ = s.file.Close()
		}
		s.file, s.filePath = nil, ""
	}
	if !cfg.Enabled {
		return nil
	}
	if s.file == nil {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logx: open %s: %v\n", path, err)
			return nil
		}
		s.file, s.filePath = f, path
	}
	return zerolog.SyncWriter(s.file)
}

// Close stops the chat sink and closes the log file. Loggers keep working
// on the console.
func (s *Service) Close() error {
	s.chat.close()

	s.mu.Lock()
	defer s.mu.Unlock()
	zl := zerolog.New(consoleWriter(os.Stdout)).Level(s.current().GetLevel()).With().Timestamp().Logger()
	s.root.Store(&zl)
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file, s.filePath = nil, ""
	return err
}

func consoleWriter(w io.Writer) io.Writer {
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: timeFormat,
		FormatCaller: func(i any) string {
			s, _ := i.(string)
			return s
		},
	}
}
