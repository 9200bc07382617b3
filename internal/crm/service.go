// Package crm applies the record-keeping rules of leads, users and
// activities on top of the engine's collections.
package crm

import (
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/celerix-dev/localcrm/internal/engine"
	"github.com/celerix-dev/localcrm/pkg/schema"
)

// ErrUnauthorized is returned by Login. It never says which credential was wrong.
var ErrUnauthorized = errors.New("invalid credentials")

// Passwords hashes new passwords and checks login attempts.
type Passwords interface {
	Hash(password string) (string, error)
	Check(password, stored string) bool
}

// Service exposes collection operations with per-collection semantics:
//
//	leads, activities: Save is an upsert keyed by id
//	users:             Save always creates; passwords are hashed and never returned
type Service struct {
	registry  *engine.Registry
	passwords Passwords
	logger    *slog.Logger
}

// NewService wraps a bootstrapped registry.
func NewService(r *engine.Registry, p Passwords, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{registry: r, passwords: p, logger: logger}
}

// Registry returns the underlying registry.
func (s *Service) Registry() *engine.Registry {
	return s.registry
}

// List returns every record of a collection. Users are stripped of their
// password and activities come newest first.
func (s *Service) List(collection string) ([]schema.Record, error) {
	c, err := s.registry.Collection(collection)
	if err != nil {
		return nil, err
	}
	records := c.Load()
	switch collection {
	case schema.Users:
		for i, r := range records {
			records[i] = safeUserRecord(r)
		}
	case schema.Activities:
		sortNewestFirst(records)
	}
	return records, nil
}

// Get returns one record by id.
func (s *Service) Get(collection, id string) (schema.Record, error) {
	c, err := s.registry.Collection(collection)
	if err != nil {
		return nil, err
	}
	rec, err := c.Get(id)
	if err != nil {
		return nil, err
	}
	if collection == schema.Users {
		return safeUserRecord(rec), nil
	}
	return rec, nil
}

// Save stores a record posted by a client.
func (s *Service) Save(collection string, rec schema.Record) (schema.Record, error) {
	c, err := s.registry.Collection(collection)
	if err != nil {
		return nil, err
	}
	if collection != schema.Users {
		return c.Upsert(rec)
	}

	rec, err = s.hashPassword(rec)
	if err != nil {
		return nil, err
	}
	stored, err := c.Insert(rec)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user created", "id", stored.ID(), "email", stored.Str(schema.FieldEmail))
	return safeUserRecord(stored), nil
}

// Update merges patch into the record with the given id.
func (s *Service) Update(collection, id string, patch schema.Record) (schema.Record, error) {
	c, err := s.registry.Collection(collection)
	if err != nil {
		return nil, err
	}
	if collection != schema.Users {
		return c.Update(id, patch)
	}

	patch, err = s.hashPassword(patch)
	if err != nil {
		return nil, err
	}
	updated, err := c.Update(id, patch)
	if err != nil {
		return nil, err
	}
	return safeUserRecord(updated), nil
}

// Delete removes a record. Unknown ids are not an error.
func (s *Service) Delete(collection, id string) error {
	c, err := s.registry.Collection(collection)
	if err != nil {
		return err
	}
	return c.Delete(id)
}

// Activities returns the activities of one lead, newest first. An empty
// leadID returns every activity.
func (s *Service) Activities(leadID string) ([]schema.Record, error) {
	all, err := s.List(schema.Activities)
	if err != nil || leadID == "" {
		return all, err
	}
	return slices.DeleteFunc(all, func(r schema.Record) bool {
		return r.Str(schema.FieldLeadID) != leadID
	}), nil
}

// Login finds the user whose email matches case-insensitively and whose
// password verifies.
func (s *Service) Login(email, password string) (schema.User, error) {
	if email == "" || password == "" {
		return schema.User{}, ErrUnauthorized
	}
	c, err := s.registry.Collection(schema.Users)
	if err != nil {
		return schema.User{}, err
	}
	for _, u := range c.Load() {
		if !strings.EqualFold(u.Str(schema.FieldEmail), email) {
			continue
		}
		if s.passwords.Check(password, u.Str(schema.FieldPassword)) {
			user := schema.SafeUser(u)
			user.CreatedAt = ""
			return user, nil
		}
	}
	s.logger.Info("login rejected", "email", email)
	return schema.User{}, ErrUnauthorized
}

// Ping reports whether the service is usable.
func (s *Service) Ping() error {
	return nil
}

// Close releases the storage backend.
func (s *Service) Close() error {
	return s.registry.Close()
}

// hashPassword replaces a non-empty plaintext password in rec with its hash.
// Blank passwords pass through so the store can ignore them.
func (s *Service) hashPassword(rec schema.Record) (schema.Record, error) {
	pw, ok := rec[schema.FieldPassword].(string)
	if !ok || pw == "" {
		return rec, nil
	}
	hashed, err := s.passwords.Hash(pw)
	if err != nil {
		return nil, err
	}
	out := rec.Clone()
	out[schema.FieldPassword] = hashed
	return out, nil
}

// safeUserRecord keeps the public user fields that are present.
func safeUserRecord(r schema.Record) schema.Record {
	out := make(schema.Record, 5)
	for _, k := range []string{schema.FieldID, schema.FieldName, schema.FieldEmail, schema.FieldRole, schema.FieldCreatedAt} {
		if v, ok := r[k]; ok {
			out[k] = v
		}
	}
	return out
}

// sortNewestFirst orders by createdAt descending. Records whose createdAt
// does not parse sort as the oldest.
func sortNewestFirst(records []schema.Record) {
	slices.SortStableFunc(records, func(a, b schema.Record) int {
		return b.CreatedTime().Compare(a.CreatedTime())
	})
}
