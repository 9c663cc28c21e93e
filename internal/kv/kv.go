// Package kv provides the key-value cache used to persist schema documents
// across process restarts.
//
// The contract is deliberately small: get/set/exists/delete by string key on
// an opaque byte blob. Three backends implement it:
//
//   - SQLite (default) - single file, WAL mode, survives restarts
//   - Badger - embedded LSM store for larger deployments
//   - Memory - tests and ephemeral sessions
package kv

import (
	"errors"
	"fmt"
)

// Store is the persistence contract for schema documents.
//
// Values are opaque blobs; callers own serialization. Implementations must
// be safe for concurrent use.
type Store interface {
	// Exists reports whether the key is present.
	Exists(key string) (bool, error)

	// Get returns the value for key. Returns ErrNotFound if absent.
	Get(key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error

	// Close releases backend resources.
	Close() error
}

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("kv: key not found")

// Backend names accepted by Open and the config file.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Open constructs a Store for the named backend. Path is ignored by the
// memory backend.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendSQLite:
		return OpenSQLite(path)
	case BackendBadger:
		return OpenBadger(BadgerConfig{Path: path})
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("kv: unknown backend %q (valid: sqlite, badger, memory)", backend)
	}
}
