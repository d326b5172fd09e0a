package tenant

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
)

var (
	// errors
	ErrUnknownTenant    = errors.New("no store configured for tenant")
	ErrStoreUnavailable = errors.New("tenant store unavailable")
)

// Context identifies the school (and optionally the device) a request acts
// for. It is owned by the request scope and must be threaded explicitly into
// every Resolve call; it is never cached across requests.
type Context struct {
	SchoolID int
	DeviceID string
}

// Handle is a resolved, ready-to-use store for exactly one tenant context.
// The connection pool beneath it may be shared between requests of the same
// tenant; the Handle value itself carries no mutable state.
type Handle struct {
	db     *sqlx.DB
	driver string
}

// NewHandle wraps an already-open store. The registry builds its own handles;
// this constructor serves repository code and tests running on a store they
// opened directly.
func NewHandle(db *sqlx.DB, driver string) *Handle {
	return &Handle{db: db, driver: driver}
}

func (h *Handle) DB() *sqlx.DB {
	return h.db
}

func (h *Handle) Driver() string {
	return h.driver
}

// StoreConfig describes one backing store known to the registry.
type StoreConfig struct {
	Driver string // "postgres" (cloud) or "sqlite" (local replica)
	DSN    string
}

// Opener establishes a connection to a backing store. The storage package
// provides the production implementation; tests may substitute their own.
type Opener func(ctx context.Context, driver, dsn string) (*sqlx.DB, error)
