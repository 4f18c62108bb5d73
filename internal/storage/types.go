package storage

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("snapshot not found")
	ErrClosed   = errors.New("storage closed")
)

// Config configures storage.
//
// Driver values:
//   - "file": directory of <key>.json files (Path is the directory)
//   - "sqlite": SQLite database file (Path is the file)
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}
