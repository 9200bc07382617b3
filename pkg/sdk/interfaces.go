package sdk

import (
	"github.com/celerix-dev/localcrm/internal/crm"
	"github.com/celerix-dev/localcrm/internal/engine"
	"github.com/celerix-dev/localcrm/pkg/schema"
)

// Errors shared by the embedded and remote implementations, so callers can
// use errors.Is regardless of the mode.
var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = engine.ErrNotFound
	// ErrUnauthorized is returned by Login for bad credentials.
	ErrUnauthorized = crm.ErrUnauthorized
)

// --- Functional Interfaces (Interface Segregation) ---

// Reader lists and fetches records.
type Reader interface {
	List(collection string) ([]schema.Record, error)
	Get(collection, id string) (schema.Record, error)
	Activities(leadID string) ([]schema.Record, error)
}

// Writer creates, updates and deletes records.
type Writer interface {
	Save(collection string, rec schema.Record) (schema.Record, error)
	Update(collection, id string, patch schema.Record) (schema.Record, error)
	Delete(collection, id string) error
}

// Authenticator checks credentials.
type Authenticator interface {
	Login(email, password string) (schema.User, error)
}

// --- Composite Interfaces ---

// CRM is the full client surface. Both the embedded service and the remote
// HTTP client implement it.
type CRM interface {
	Reader
	Writer
	Authenticator
	Ping() error
	Close() error
}

var (
	_ CRM = (*crm.Service)(nil)
	_ CRM = (*Client)(nil)
)
