// Package sessionstate selects and wraps the session store backends. Other
// packages depend on domain.SessionStore and this package's constructors
// instead of importing infra packages directly.
package sessionstate

import (
	flatfilestore "stimcore/internal/infra/sessionstate/flatfile"
	memorystore "stimcore/internal/infra/sessionstate/memory"
	postgresstore "stimcore/internal/infra/sessionstate/postgres"
	sqlitestore "stimcore/internal/infra/sessionstate/sqlite"
	"stimcore/pkg/domain"
)

// Driver identifies a session store backend.
type Driver string

const (
	// DriverFlatfile is the canonical CSV-and-marker-file layout (default).
	DriverFlatfile Driver = "flatfile"
	// DriverSQLite snapshots state into a single SQLite database file.
	DriverSQLite Driver = "sqlite"
	// DriverPostgres snapshots state into a shared Postgres database.
	DriverPostgres Driver = "postgres"
	// DriverMemory keeps state in process memory (tests).
	DriverMemory Driver = "memory"
)

// NewFlatfile returns the flat-file session store rooted at path.
func NewFlatfile(root string) (domain.SessionStore, error) {
	return flatfilestore.New(root)
}

// NewSQLite returns the SQLite-backed session store at path.
func NewSQLite(path string) (domain.SessionStore, error) {
	return sqlitestore.NewStore(path)
}

// NewPostgres returns the Postgres-backed session store for the DSN.
func NewPostgres(dsn string) (domain.SessionStore, error) {
	return postgresstore.NewStore(dsn)
}

// NewMemory returns an in-memory session store suitable for tests.
func NewMemory() domain.SessionStore { return memorystore.New() }
