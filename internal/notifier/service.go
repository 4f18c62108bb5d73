package notifier

import (
	"context"
	"errors"
	"sync"
	"time"

	kit "contentwatch/internal/transport"
	logx "contentwatch/pkg/logx"

	"golang.org/x/time/rate"
)

var ErrNoAdapter = errors.New("notifier has no adapter")

// Service sends notifications one at a time to a fixed target.
//
// It is safe for concurrent use, though the watch loop is its only caller in
// practice.
type Service struct {
	mu sync.Mutex

	log     logx.Logger
	adapter kit.Adapter
	target  kit.ChatTarget

	cfg     Config
	limiter *rate.Limiter

	// In-memory history (for /status)
	hmu     sync.Mutex
	history []HistoryItem
	sent    int64
	failed  int64
}

func New(cfg Config, adapter kit.Adapter, target kit.ChatTarget, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{adapter: adapter, target: target, log: log}
	s.applyLocked(cfg)
	return s
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 50
	}
	s.cfg = cfg
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst)
}

// SetTarget changes the destination chat. The app sets it once the
// configured channel reference is resolved.
func (s *Service) SetTarget(to kit.ChatTarget) {
	s.mu.Lock()
	s.target = to
	s.mu.Unlock()
}

// Target returns the chat notifications are delivered to.
func (s *Service) Target() kit.ChatTarget {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// Deliver sends ns in order. It returns early only when ctx ends; the
// unsent remainder is not counted as failed.
func (s *Service) Deliver(ctx context.Context, ns []kit.Notification) Report {
	var rep Report
	for i, n := range ns {
		// A pacing wait that cannot finish before ctx ends stops delivery.
		if err := s.wait(ctx); err != nil {
			s.log.Warn("delivery interrupted", logx.Int("pending", len(ns)-i), logx.Err(err))
			return rep
		}
		if err := s.send(ctx, n); err != nil {
			rep.Failed++
			s.log.Error("notification failed",
				logx.String("kind", n.Kind),
				logx.String("title", n.Title),
				logx.Err(err),
			)
			s.appendHistory(n, err)
			continue
		}
		rep.Sent++
		s.appendHistory(n, nil)
	}
	return rep
}

func (s *Service) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	lim := s.limiter
	s.mu.Unlock()
	if lim == nil {
		return nil
	}
	return lim.Wait(ctx)
}

func (s *Service) send(ctx context.Context, n kit.Notification) error {
	// config snapshot for this send
	s.mu.Lock()
	cfg := s.cfg
	ad := s.adapter
	to := s.target
	s.mu.Unlock()

	if ad == nil {
		return ErrNoAdapter
	}

	callCtx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
	defer cancel()
	_, err := ad.SendNotification(callCtx, to, n)
	return err
}

// Snapshot returns the recent history, oldest first.
func (s *Service) Snapshot() []HistoryItem {
	s.hmu.Lock()
	out := append([]HistoryItem(nil), s.history...)
	s.hmu.Unlock()
	return out
}

// Totals returns the sent and failed counts since start.
func (s *Service) Totals() (sent, failed int64) {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	return s.sent, s.failed
}

func (s *Service) appendHistory(n kit.Notification, err error) {
	s.mu.Lock()
	max := s.cfg.HistorySize
	s.mu.Unlock()

	it := HistoryItem{At: time.Now(), Kind: n.Kind, Title: n.Title}
	s.hmu.Lock()
	if err != nil {
		it.Error = err.Error()
		s.failed++
	} else {
		s.sent++
	}
	s.history = append(s.history, it)
	if len(s.history) > max {
		s.history = s.history[len(s.history)-max:]
	}
	s.hmu.Unlock()
}
