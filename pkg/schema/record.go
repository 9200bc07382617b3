// Package schema defines the data structures shared by the localcrm store, API and SDK.
package schema

import "time"

// Reserved field names managed by the store.
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
)

// TimeLayout is the ISO-8601 layout used for createdAt values.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Record is one document of a collection. Only id and createdAt are
// interpreted by the store; every other field is opaque JSON.
type Record map[string]any

// ID returns the record identifier, or "" when absent or not a string.
func (r Record) ID() string {
	s, _ := r[FieldID].(string)
	return s
}

// CreatedAt returns the raw createdAt value, or "" when absent.
func (r Record) CreatedAt() string {
	s, _ := r[FieldCreatedAt].(string)
	return s
}

// CreatedTime parses createdAt. Unparseable or missing values yield the zero time.
func (r Record) CreatedTime() time.Time {
	ts := r.CreatedAt()
	if ts == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Clone returns a shallow copy of the record. Nested values are shared.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Str returns a string field, or "" when absent or not a string.
func (r Record) Str(key string) string {
	s, _ := r[key].(string)
	return s
}

// FormatTime renders t the way createdAt values are stored.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
