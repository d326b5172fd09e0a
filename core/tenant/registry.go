package tenant

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/pkg/errors"

	"github.com/bala2006-m/smart-school-server-sub001/core"
)

// Registry maps a tenant Context to the single store handle serving it:
// the central cloud store for most schools, a device-local SQLite replica
// for schools configured with one. Stores are opened lazily and the pools
// are reused across requests of the same tenant; resolution itself is pure
// per call.
type Registry struct {
	open   Opener
	logger core.Logger

	cloud    StoreConfig
	stores   map[int]StoreConfig // per-school overrides (local replicas)
	known    map[int]struct{}
	replicas int

	mu      sync.Mutex
	entries map[string]*storeEntry // keyed by DSN so schools sharing a store share a pool
}

// storeEntry serializes opening one store. Each DSN carries its own lock so a
// slow or unreachable store only stalls resolutions of its own tenants.
type storeEntry struct {
	mu sync.Mutex
	h  *Handle
}

func NewRegistry(conf *core.Config, open Opener, logger core.Logger) *Registry {
	reg := &Registry{
		open:    open,
		logger:  logger,
		cloud:   StoreConfig{Driver: conf.Database.Engine, DSN: cloudDSN(conf)},
		stores:  make(map[int]StoreConfig, len(conf.Tenancy.Replicas)),
		known:   make(map[int]struct{}, len(conf.Tenancy.Schools)),
		entries: make(map[string]*storeEntry),
	}
	for _, id := range conf.Tenancy.Schools {
		reg.known[id] = struct{}{}
	}
	for id, path := range conf.Tenancy.Replicas {
		reg.known[id] = struct{}{}
		reg.stores[id] = StoreConfig{Driver: "sqlite", DSN: path}
		reg.replicas++
	}
	return reg
}

// Resolve returns the store handle for the given tenant context.
// It fails with ErrUnknownTenant for unregistered schools and with
// ErrStoreUnavailable when the configured store cannot be reached; the
// failure is surfaced, never silently substituted with another store.
func (reg *Registry) Resolve(ctx context.Context, tc Context) (*Handle, error) {
	if _, ok := reg.known[tc.SchoolID]; !ok {
		return nil, errors.Wrapf(ErrUnknownTenant, "school %d", tc.SchoolID)
	}

	cfg, ok := reg.stores[tc.SchoolID]
	if !ok {
		cfg = reg.cloud
	}

	h, err := reg.handle(ctx, cfg)
	if err != nil {
		return nil, errors.Wrapf(ErrStoreUnavailable, "school %d: %v", tc.SchoolID, err)
	}
	if err = h.db.PingContext(ctx); err != nil {
		return nil, errors.Wrapf(ErrStoreUnavailable, "school %d: %v", tc.SchoolID, err)
	}
	return h, nil
}

// Cloud resolves the central cloud store, used by tenant-metadata access
// (school records) that does not belong to any single school.
func (reg *Registry) Cloud(ctx context.Context) (*Handle, error) {
	h, err := reg.handle(ctx, reg.cloud)
	if err != nil {
		return nil, errors.Wrapf(ErrStoreUnavailable, "cloud store: %v", err)
	}
	return h, nil
}

func (reg *Registry) handle(ctx context.Context, cfg StoreConfig) (*Handle, error) {
	reg.mu.Lock()
	e, ok := reg.entries[cfg.DSN]
	if !ok {
		e = &storeEntry{}
		reg.entries[cfg.DSN] = e
	}
	reg.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.h != nil {
		return e.h, nil
	}

	db, err := reg.open(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	e.h = &Handle{db: db, driver: cfg.Driver}
	if reg.logger != nil {
		reg.logger.Info(fmt.Sprintf("tenant registry: opened %s store", cfg.Driver))
	}
	return e.h, nil
}

// Close closes every store opened so far.
func (reg *Registry) Close() error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	var firstErr error
	for dsn, e := range reg.entries {
		e.mu.Lock()
		if e.h != nil {
			if err := e.h.db.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		e.mu.Unlock()
		delete(reg.entries, dsn)
	}
	return firstErr
}

func cloudDSN(conf *core.Config) string {
	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   conf.Database.Engine,
		User:     url.UserPassword(conf.Database.User, conf.Database.Password),
		Host:     conf.Database.Address(),
		Path:     conf.Database.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}
