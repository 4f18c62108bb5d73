package storage

import (
	"context"
	"errors"
	"regexp"
	"strings"

	logx "contentwatch/pkg/logx"
)

// Store is the persistence API used by the watchers.
type Store interface {
	// Get returns ErrNotFound when nothing was saved under key yet.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Close() error
}

var reKey = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidKey reports whether key is safe to use as a file name.
func ValidKey(key string) bool {
	return reKey.MatchString(key) && !strings.Contains(key, "..")
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	switch driver := strings.ToLower(strings.TrimSpace(cfg.Driver)); driver {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
