package engine

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/celerix-dev/localcrm/pkg/schema"
)

// Collection is the store for one named collection of records.
//
// Every mutation holds the write lock across the whole read-modify-write
// cycle, so concurrent writers cannot lose each other's updates.
type Collection struct {
	name      string
	persister Persister
	sensitive map[string]bool
	ids       *IDGenerator
	now       func() time.Time
	logger    *slog.Logger

	mu sync.RWMutex
}

// CollectionOption configures a Collection.
type CollectionOption func(*Collection)

// WithSensitiveFields marks fields that an update can set but never clear:
// an empty string or null in a patch leaves the stored value in place.
func WithSensitiveFields(fields ...string) CollectionOption {
	return func(c *Collection) {
		for _, f := range fields {
			c.sensitive[f] = true
		}
	}
}

// WithClock overrides the time source used for createdAt.
func WithClock(now func() time.Time) CollectionOption {
	return func(c *Collection) { c.now = now }
}

// WithIDGenerator overrides the id source.
func WithIDGenerator(g *IDGenerator) CollectionOption {
	return func(c *Collection) { c.ids = g }
}

// WithLogger sets the logger used for swallowed read errors.
func WithLogger(l *slog.Logger) CollectionOption {
	return func(c *Collection) { c.logger = l }
}

// NewCollection returns a store for name backed by p.
func NewCollection(name string, p Persister, opts ...CollectionOption) *Collection {
	c := &Collection{
		name:      name,
		persister: p,
		sensitive: make(map[string]bool),
		ids:       defaultIDs,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// Load returns every persisted record in stored order. It never fails: a
// missing collection is empty, and an unreadable or corrupt one is logged and
// reported as empty. Use LoadStrict to observe those errors.
func (c *Collection) Load() []schema.Record {
	records, err := c.LoadStrict()
	if err != nil {
		c.logger.Warn("collection unreadable, serving it as empty", "collection", c.name, "err", err)
		return []schema.Record{}
	}
	return records
}

// LoadStrict is Load without error masking.
func (c *Collection) LoadStrict() ([]schema.Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	records, err := c.persister.Load(c.name)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []schema.Record{}
	}
	return records, nil
}

// Len returns the number of records, or 0 when the collection is unreadable.
func (c *Collection) Len() int {
	return len(c.Load())
}

// Get returns the record with the given id.
func (c *Collection) Get(id string) (schema.Record, error) {
	records, err := c.LoadStrict()
	if err != nil {
		return nil, err
	}
	i := indexOf(records, id)
	if i < 0 {
		return nil, ErrNotFound
	}
	return records[i], nil
}

// Insert always creates a new record. Any id or createdAt in partial is
// replaced by freshly generated values.
func (c *Collection) Insert(partial schema.Record) (schema.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.persister.Load(c.name)
	if err != nil {
		return nil, err
	}
	rec := c.newRecord(records, partial)
	if err := c.persister.Save(c.name, append(records, rec)); err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}

// Upsert creates or merges depending on the id in partial:
//   - no id: same as Insert;
//   - id of an existing record: shallow merge, id and createdAt kept;
//   - unknown id: appended as given, createdAt filled in when absent.
func (c *Collection) Upsert(partial schema.Record) (schema.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.persister.Load(c.name)
	if err != nil {
		return nil, err
	}

	var rec schema.Record
	id := partial.ID()
	switch i := indexOf(records, id); {
	case id == "":
		rec = c.newRecord(records, partial)
		records = append(records, rec)
	case i >= 0:
		rec = c.merge(records[i], partial)
		records[i] = rec
	default:
		rec = partial.Clone()
		if rec.CreatedAt() == "" {
			rec[schema.FieldCreatedAt] = schema.FormatTime(c.now())
		}
		records = append(records, rec)
	}

	if err := c.persister.Save(c.name, records); err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}

// Update shallow-merges partial into the record with the given id. id and
// createdAt in partial are ignored. Nothing is written when id is unknown.
func (c *Collection) Update(id string, partial schema.Record) (schema.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.persister.Load(c.name)
	if err != nil {
		return nil, err
	}
	i := indexOf(records, id)
	if i < 0 {
		return nil, ErrNotFound
	}
	records[i] = c.merge(records[i], partial)
	if err := c.persister.Save(c.name, records); err != nil {
		return nil, err
	}
	return records[i].Clone(), nil
}

// Delete removes the record with the given id. Deleting an unknown id
// succeeds without touching the backing store.
func (c *Collection) Delete(id string) error {
	if id == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.persister.Load(c.name)
	if err != nil {
		return err
	}
	n := len(records)
	records = slices.DeleteFunc(records, func(r schema.Record) bool { return r.ID() == id })
	if len(records) == n {
		return nil
	}
	return c.persister.Save(c.name, records)
}

// SeedIfEmpty stores the record returned by build as the only record when
// the collection is missing or empty. build is not called otherwise. It
// reports whether a record was written.
func (c *Collection) SeedIfEmpty(build func() (schema.Record, error)) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.persister.Load(c.name)
	if err != nil {
		return false, err
	}
	if len(records) > 0 {
		return false, nil
	}
	rec, err := build()
	if err != nil {
		return false, err
	}
	seed := rec.Clone()
	if seed == nil {
		seed = schema.Record{}
	}
	if seed.CreatedAt() == "" {
		seed[schema.FieldCreatedAt] = schema.FormatTime(c.now())
	}
	if err := c.persister.Save(c.name, []schema.Record{seed}); err != nil {
		return false, err
	}
	return true, nil
}

// newRecord copies partial and stamps a fresh id and createdAt.
// Must be called with c.mu held.
func (c *Collection) newRecord(existing []schema.Record, partial schema.Record) schema.Record {
	rec := partial.Clone()
	if rec == nil {
		rec = schema.Record{}
	}
	id := c.ids.Next()
	for indexOf(existing, id) >= 0 {
		id = c.ids.Next()
	}
	rec[schema.FieldID] = id
	rec[schema.FieldCreatedAt] = schema.FormatTime(c.now())
	return rec
}

// merge applies a shallow patch over a copy of dst.
func (c *Collection) merge(dst, patch schema.Record) schema.Record {
	out := dst.Clone()
	for k, v := range patch {
		if k == schema.FieldID || k == schema.FieldCreatedAt {
			continue
		}
		if c.sensitive[k] && isBlank(v) {
			continue
		}
		out[k] = v
	}
	return out
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	}
	return false
}

func indexOf(records []schema.Record, id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(records, func(r schema.Record) bool { return r.ID() == id })
}
