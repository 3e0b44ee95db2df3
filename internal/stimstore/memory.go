package stimstore

import (
	memorystore "stimcore/internal/infra/stimstore/memory"
)

// NewMemory returns an in-memory stimulus store suitable for tests.
func NewMemory() Store { return memorystore.New() }
