// Package stimstore re-exports the stimulus store abstractions for stable
// imports across the internal tree.
package stimstore

import (
	"stimcore/internal/stimstore/core"
)

type (
	// Driver identifies a stimulus storage backend driver.
	Driver = core.Driver
	// SignedURLOptions configures URL pre-signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes stored object metadata.
	Info = core.Info
	// Store is the interface for stimulus storage backends.
	Store = core.Store
	// MissingStoreError reports a mandatory store location that does not exist.
	MissingStoreError = core.MissingStoreError
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

// ErrUnsupported indicates an operation isn't supported by a driver.
var ErrUnsupported = core.ErrUnsupported
