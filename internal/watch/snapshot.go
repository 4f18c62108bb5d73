package watch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"contentwatch/internal/storage"
	logx "contentwatch/pkg/logx"
)

// Snapshot persists the last processed state of one watcher under a fixed
// storage key as indented JSON.
type Snapshot[T any] struct {
	store storage.Store
	key   string
	empty func() T
	log   logx.Logger
}

func NewSnapshot[T any](store storage.Store, key string, empty func() T, log logx.Logger) *Snapshot[T] {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Snapshot[T]{store: store, key: key, empty: empty, log: log}
}

func (s *Snapshot[T]) Key() string { return s.key }

// Load never fails: a missing, unreadable or malformed snapshot yields the
// empty value and a warning.
func (s *Snapshot[T]) Load(ctx context.Context) T {
	b, err := s.store.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		s.log.Info("no snapshot yet, starting empty", logx.String("key", s.key))
		return s.empty()
	}
	if err != nil {
		s.log.Warn("snapshot unreadable, starting empty", logx.String("key", s.key), logx.Err(err))
		return s.empty()
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return s.empty()
	}

	v := s.empty()
	if err := json.Unmarshal(b, &v); err != nil {
		s.log.Warn("snapshot malformed, starting empty", logx.String("key", s.key), logx.Err(err))
		return s.empty()
	}
	return v
}

func (s *Snapshot[T]) Save(ctx context.Context, v T) error {
	b, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", s.key, err)
	}
	b = append(b, '\n')
	if err := s.store.Put(ctx, s.key, b); err != nil {
		return fmt.Errorf("save snapshot %s: %w", s.key, err)
	}
	return nil
}
