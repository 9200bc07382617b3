package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/celerix-dev/localcrm/pkg/schema"
)

// FilePersistence stores each collection as a pretty-printed JSON array in
// <DataDir>/<name>.json.
type FilePersistence struct {
	DataDir string
}

// NewFilePersistence initializes a persistence handler and creates dir.
func NewFilePersistence(dir string) (*FilePersistence, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FilePersistence{DataDir: dir}, nil
}

// Path returns the backing file of a collection.
func (p *FilePersistence) Path(name string) string {
	return filepath.Join(p.DataDir, name+".json")
}

// Load reads a collection file. A missing or blank file is an empty collection.
func (p *FilePersistence) Load(name string) ([]schema.Record, error) {
	path := p.Path(name)
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return decodeRecords(path, content)
}

// Save writes the collection to a temporary file and renames it over the
// target, so a crash leaves either the old file or the new one.
func (p *FilePersistence) Save(name string, records []schema.Record) error {
	content, err := encodeRecords(records)
	if err != nil {
		return err
	}

	path := p.Path(name)
	tmp, err := os.CreateTemp(p.DataDir, "."+name+"-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", tmpName, err)
	}
	return nil
}

// Exists reports whether the collection file is present.
func (p *FilePersistence) Exists(name string) (bool, error) {
	_, err := os.Stat(p.Path(name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Close is a no-op; files are not held open between calls.
func (p *FilePersistence) Close() error {
	return nil
}

func encodeRecords(records []schema.Record) ([]byte, error) {
	if records == nil {
		records = []schema.Record{}
	}
	content, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	return content, nil
}

// decodeRecords parses a JSON array document. Null entries are dropped.
func decodeRecords(source string, content []byte) ([]schema.Record, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, nil
	}
	var raw []schema.Record
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, source, err)
	}
	records := raw[:0]
	for _, r := range raw {
		if r != nil {
			records = append(records, r)
		}
	}
	return records, nil
}
