package sessionstate

import (
	"context"
	"fmt"
	"os"

	"stimcore/pkg/domain"
)

// Open selects a session store implementation using environment variables.
//
//	STIMCORE_SESSION_DRIVER: flatfile|sqlite|postgres|memory (default flatfile)
//	STIMCORE_SESSION_FS_ROOT: directory root when driver=flatfile (default .)
//	STIMCORE_SESSION_SQLITE_PATH: database path when driver=sqlite
//	STIMCORE_SESSION_POSTGRES_DSN: connection string when driver=postgres
func Open(_ context.Context) (domain.SessionStore, error) {
	driver := os.Getenv("STIMCORE_SESSION_DRIVER")
	if driver == "" {
		driver = string(DriverFlatfile)
	}
	switch Driver(driver) {
	case DriverFlatfile:
		return NewFlatfile(os.Getenv("STIMCORE_SESSION_FS_ROOT"))
	case DriverSQLite:
		return NewSQLite(os.Getenv("STIMCORE_SESSION_SQLITE_PATH"))
	case DriverPostgres:
		return NewPostgres(os.Getenv("STIMCORE_SESSION_POSTGRES_DSN"))
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown session store driver %s", driver)
	}
}
