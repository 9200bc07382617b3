package engine

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/celerix-dev/localcrm/pkg/schema"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLitePersistence stores all collections in a single SQLite database.
//
// Tables:
//
//	collections(name)                        PRIMARY KEY (name)
//	records(collection, position, data)      PRIMARY KEY (collection, position)
//
// Save replaces a collection's rows in one transaction, which keeps the
// whole-collection rewrite contract of the file backend.
type SQLitePersistence struct {
	db *sql.DB
}

// NewSQLitePersistence opens (or creates) the database at dbPath.
func NewSQLitePersistence(dbPath string) (*SQLitePersistence, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dbPath, err)
	}
	// One connection avoids SQLITE_BUSY between our own writers.
	db.SetMaxOpenConns(1)

	stmts := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		`CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY
		)`,
		`CREATE TABLE IF NOT EXISTS records (
			collection TEXT NOT NULL,
			position INTEGER NOT NULL,
			data TEXT NOT NULL,
			PRIMARY KEY (collection, position)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init schema: %w", err)
		}
	}
	return &SQLitePersistence{db: db}, nil
}

func (s *SQLitePersistence) Load(name string) ([]schema.Record, error) {
	ok, err := s.Exists(name)
	if err != nil || !ok {
		return nil, err
	}
	rows, err := s.db.Query("SELECT data FROM records WHERE collection = ? ORDER BY position", name)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}
	defer rows.Close()

	records := []schema.Record{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var rec schema.Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("%w: sqlite:%s: %v", ErrCorrupt, name, err)
		}
		if rec != nil {
			records = append(records, rec)
		}
	}
	return records, rows.Err()
}

func (s *SQLitePersistence) Save(name string, records []schema.Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("INSERT OR IGNORE INTO collections (name) VALUES (?)", name); err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	if _, err := tx.Exec("DELETE FROM records WHERE collection = ?", name); err != nil {
		return fmt.Errorf("clear %s: %w", name, err)
	}
	for i, rec := range records {
		b, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		if _, err := tx.Exec(
			"INSERT INTO records (collection, position, data) VALUES (?, ?, ?)",
			name, i, string(b),
		); err != nil {
			return fmt.Errorf("insert into %s: %w", name, err)
		}
	}
	return tx.Commit()
}

func (s *SQLitePersistence) Exists(name string) (bool, error) {
	var one int
	err := s.db.QueryRow("SELECT 1 FROM collections WHERE name = ?", name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLitePersistence) Close() error {
	return s.db.Close()
}
