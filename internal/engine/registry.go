package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/celerix-dev/localcrm/pkg/schema"
)

// AdminSeed describes the account written into an empty users collection.
type AdminSeed struct {
	ID       string
	Name     string
	Email    string
	Password string
}

// DefaultAdmin is the placeholder account seeded on first start. Rotate it
// before exposing the service to anyone else.
var DefaultAdmin = AdminSeed{
	ID:       "1",
	Name:     "Admin",
	Email:    "admin@localcrm.local",
	Password: "password123",
}

// Hasher turns a plaintext password into its stored form.
type Hasher interface {
	Hash(password string) (string, error)
}

// RegistryOptions configures a Registry. Zero values select defaults.
type RegistryOptions struct {
	Logger *slog.Logger
	Admin  AdminSeed
	// Hasher is applied to the seeded password. Nil stores it as given.
	Hasher Hasher
	// Clock overrides time.Now for createdAt stamps.
	Clock func() time.Time
	// IDs overrides the process-wide id generator.
	IDs *IDGenerator
}

// collectionDef is one entry of the fixed name -> storage mapping.
type collectionDef struct {
	name      string
	sensitive []string
}

// collectionDefs lists the managed collections in a stable order. With the
// json backend each one lives in <data dir>/<name>.json.
var collectionDefs = []collectionDef{
	{name: schema.Leads},
	{name: schema.Users, sensitive: []string{schema.FieldPassword}},
	{name: schema.Activities},
}

// Registry owns one Collection per managed name, all sharing a Persister.
type Registry struct {
	persister   Persister
	logger      *slog.Logger
	admin       AdminSeed
	hasher      Hasher
	collections map[string]*Collection
}

// NewRegistry builds the collections on top of p. Call Bootstrap before
// serving requests.
func NewRegistry(p Persister, opts RegistryOptions) *Registry {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Admin == (AdminSeed{}) {
		opts.Admin = DefaultAdmin
	}
	if opts.Admin.ID == "" {
		opts.Admin.ID = DefaultAdmin.ID
	}
	if opts.Admin.Name == "" {
		opts.Admin.Name = DefaultAdmin.Name
	}

	r := &Registry{
		persister:   p,
		logger:      opts.Logger,
		admin:       opts.Admin,
		hasher:      opts.Hasher,
		collections: make(map[string]*Collection, len(collectionDefs)),
	}
	for _, def := range collectionDefs {
		copts := []CollectionOption{
			WithLogger(opts.Logger.With("collection", def.name)),
			WithSensitiveFields(def.sensitive...),
		}
		if opts.Clock != nil {
			copts = append(copts, WithClock(opts.Clock))
		}
		if opts.IDs != nil {
			copts = append(copts, WithIDGenerator(opts.IDs))
		}
		r.collections[def.name] = NewCollection(def.name, p, copts...)
	}
	return r
}

// CollectionNames returns the managed collection names in registration order.
func CollectionNames() []string {
	names := make([]string, 0, len(collectionDefs))
	for _, def := range collectionDefs {
		names = append(names, def.name)
	}
	return names
}

// Names is CollectionNames.
func (r *Registry) Names() []string {
	return CollectionNames()
}

// Collection returns the store for name.
func (r *Registry) Collection(name string) (*Collection, error) {
	c, ok := r.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, name)
	}
	return c, nil
}

// Persister returns the shared backend.
func (r *Registry) Persister() Persister {
	return r.persister
}

// Close releases the backend.
func (r *Registry) Close() error {
	return r.persister.Close()
}

// Bootstrap creates every missing collection as an empty array and seeds the
// admin account into an empty users collection. Running it again changes
// nothing. A corrupt users document is reported in the log and left alone.
func (r *Registry) Bootstrap() error {
	for _, name := range r.Names() {
		ok, err := r.persister.Exists(name)
		if err != nil {
			return fmt.Errorf("check collection %s: %w", name, err)
		}
		if ok {
			continue
		}
		if err := r.persister.Save(name, nil); err != nil {
			return fmt.Errorf("create collection %s: %w", name, err)
		}
		r.logger.Debug("created collection", "collection", name)
	}
	return r.seedAdmin()
}

func (r *Registry) seedAdmin() error {
	seeded, err := r.collections[schema.Users].SeedIfEmpty(func() (schema.Record, error) {
		password := r.admin.Password
		if r.hasher != nil {
			hashed, err := r.hasher.Hash(password)
			if err != nil {
				return nil, fmt.Errorf("hash admin password: %w", err)
			}
			password = hashed
		}
		return schema.Record{
			schema.FieldID:       r.admin.ID,
			schema.FieldName:     r.admin.Name,
			schema.FieldEmail:    r.admin.Email,
			schema.FieldPassword: password,
			schema.FieldRole:     schema.RoleAdmin,
		}, nil
	})
	if errors.Is(err, ErrCorrupt) {
		r.logger.Error("users collection is corrupt, admin account not seeded", "err", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if seeded {
		r.logger.Warn("created default admin account, change its password", "email", r.admin.Email)
	}
	return nil
}
