// Package engine implements the file-backed document store behind localcrm.
//
// A Collection owns one persisted JSON array of records and serializes every
// read-modify-write cycle behind its own lock. A Persister decides where the
// array lives: a JSON file per collection, an in-memory map, or SQLite.
package engine

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/celerix-dev/localcrm/pkg/schema"
)

var (
	// ErrNotFound is returned when no record matches the requested id.
	ErrNotFound = errors.New("record not found")
	// ErrCorrupt is returned when a backing document exists but cannot be decoded.
	ErrCorrupt = errors.New("collection data is corrupt")
	// ErrUnknownCollection is returned for names the registry does not manage.
	ErrUnknownCollection = errors.New("unknown collection")
)

// Persister loads and stores whole collections.
//
// Load returns (nil, nil) when the collection has never been written.
// Save replaces the collection atomically: readers observe either the old
// or the new contents, never a mix.
type Persister interface {
	Load(name string) ([]schema.Record, error)
	Save(name string, records []schema.Record) error
	Exists(name string) (bool, error)
	Close() error
}

// Supported backend names for NewPersister.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// SQLiteFile is the database file name used by the sqlite backend.
const SQLiteFile = "crm.db"

// NewPersister creates a Persister for the named backend rooted at dataDir.
func NewPersister(backend, dataDir string) (Persister, error) {
	switch backend {
	case BackendJSON, "":
		return NewFilePersistence(dataDir)
	case BackendSQLite:
		return NewSQLitePersistence(filepath.Join(dataDir, SQLiteFile))
	case BackendMemory:
		return NewMemPersistence(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q (supported: json, sqlite, memory)", backend)
	}
}
