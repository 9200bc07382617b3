package engine

import (
	"sync"

	"github.com/celerix-dev/localcrm/pkg/schema"
)

// MemPersistence keeps encoded collections in memory. Data is lost on
// restart. Storing the encoded form gives every Load an independent copy.
type MemPersistence struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemPersistence returns an empty in-memory persister.
func NewMemPersistence() *MemPersistence {
	return &MemPersistence{data: make(map[string][]byte)}
}

func (m *MemPersistence) Load(name string) ([]schema.Record, error) {
	m.mu.RLock()
	content, ok := m.data[name]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return decodeRecords("memory:"+name, content)
}

func (m *MemPersistence) Save(name string, records []schema.Record) error {
	content, err := encodeRecords(records)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[name] = content
	m.mu.Unlock()
	return nil
}

func (m *MemPersistence) Exists(name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[name]
	return ok, nil
}

// SetRaw replaces a collection with undecoded bytes, bypassing encoding.
func (m *MemPersistence) SetRaw(name string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[name] = append([]byte(nil), content...)
}

// Raw returns the stored bytes of a collection.
func (m *MemPersistence) Raw(name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.data[name]
	return append([]byte(nil), content...), ok
}

func (m *MemPersistence) Close() error {
	return nil
}
