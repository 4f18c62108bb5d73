// Package storage persists watcher snapshots.
//
// A snapshot is an opaque, human-readable document (indented JSON) stored
// under a key. Two backends exist:
//   - "file": one <key>.json file per snapshot in a directory, replaced via
//     write-to-temp + rename so a crash never leaves a half-written file
//   - "sqlite": a single database file with one row per key
//
// Callers own the encoding; the store only moves bytes.
package storage
