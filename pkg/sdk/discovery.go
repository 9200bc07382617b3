package sdk

import (
	"fmt"
	"log/slog"

	"github.com/celerix-dev/localcrm/internal/crm"
	"github.com/celerix-dev/localcrm/internal/engine"
	"github.com/celerix-dev/localcrm/internal/vault"
)

// Options selects between remote and embedded mode.
type Options struct {
	// Addr is the base URL of a running crmd. Empty selects embedded mode.
	Addr string
	// Backend and DataDir configure the embedded store.
	Backend string
	DataDir string
	Admin   engine.AdminSeed
	Logger  *slog.Logger
}

// New initializes a CRM based on opts.
// It returns the interface, so the caller doesn't care if it's local or remote.
func New(opts Options) (CRM, error) {
	// 1. A remote daemon wins when configured
	if opts.Addr != "" {
		return Connect(opts.Addr)
	}

	// 2. Fallback to embedded mode
	// This uses the same engine the daemon uses, but inside the caller's process.
	return OpenEmbedded(opts)
}

// OpenEmbedded opens the store in-process and bootstraps it.
func OpenEmbedded(opts Options) (*crm.Service, error) {
	p, err := engine.NewPersister(opts.Backend, opts.DataDir)
	if err != nil {
		return nil, err
	}

	hasher := vault.NewHasher()
	registry := engine.NewRegistry(p, engine.RegistryOptions{
		Logger: opts.Logger,
		Admin:  opts.Admin,
		Hasher: hasher,
	})
	if err := registry.Bootstrap(); err != nil {
		p.Close()
		return nil, fmt.Errorf("bootstrap store: %w", err)
	}
	return crm.NewService(registry, hasher, opts.Logger), nil
}
