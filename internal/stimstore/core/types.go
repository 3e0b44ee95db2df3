// Package core declares the stimulus object store abstraction shared by all
// storage backends.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Driver identifies a concrete stimulus storage backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"     // local stimulus directories (default)
	DriverS3         Driver = "s3"     // S3 / MinIO compatible lab-shared corpora
	DriverMemory     Driver = "memory" // in-memory (tests)
)

// Info describes a stored object.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	LastModified time.Time `json:"last_modified"`
	URL          string    `json:"url,omitempty"`
}

// SignedURLOptions holds options for generating a time-limited GET URL.
type SignedURLOptions struct {
	Expiry time.Duration // default 15m
}

// Store is a thin object-store abstraction over a stimulus corpus. Keys are
// slash-separated paths (phase prefix, then optional speaker directories,
// then the stimulus identifier as the base name). The corpus is read-mostly:
// trial runners enumerate and read, seeding and export writes are
// create-only.
type Store interface {
	// List returns objects whose key has the provided prefix, in stable
	// ascending key order.
	List(ctx context.Context, prefix string) ([]Info, error)
	// Open returns object metadata and its payload for streaming.
	Open(ctx context.Context, key string) (Info, io.ReadCloser, error)
	// Stat returns metadata only.
	Stat(ctx context.Context, key string) (Info, error)
	// Put stores a new object. MUST fail if the key already exists.
	Put(ctx context.Context, key string, r io.Reader) (Info, error)
	// Delete removes an object. Returns (false, nil) if not found.
	Delete(ctx context.Context, key string) (bool, error)
	// SignedURL returns a time-limited GET URL for web-based trial runners.
	// Implementations may return ErrUnsupported.
	SignedURL(ctx context.Context, key string, opts SignedURLOptions) (string, error)
	// Driver returns the configured backend driver.
	Driver() Driver
}

// ErrUnsupported is returned when an optional capability is not available.
var ErrUnsupported = errors.New("stimstore: unsupported operation")

// MissingStoreError reports a mandatory stimulus store location that does not
// exist. It is fatal and raised before any session state is touched.
type MissingStoreError struct {
	Driver   Driver
	Location string
}

func (e MissingStoreError) Error() string {
	return fmt.Sprintf("stimulus store (%s) missing: %s", e.Driver, e.Location)
}
