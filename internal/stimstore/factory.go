package stimstore

import (
	"context"
	"fmt"
	"os"
)

// Open selects a stimstore.Store implementation using environment variables.
//
//	STIMCORE_STIMULI_DRIVER: fs|s3|memory (default fs)
//	STIMCORE_STIMULI_FS_ROOT: directory root when driver=fs (default ./stimuli)
//	(S3 specific variables documented in the s3 backend)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("STIMCORE_STIMULI_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		root := os.Getenv("STIMCORE_STIMULI_FS_ROOT")
		return NewFilesystem(root)
	case DriverS3:
		return OpenS3FromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown stimulus store driver %s", driver)
	}
}
