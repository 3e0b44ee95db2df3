package stimstore

import (
	fsstore "stimcore/internal/infra/stimstore/fs"
)

// NewFilesystem returns a filesystem-backed stimulus store rooted at path.
// The root directory must already exist.
func NewFilesystem(root string) (Store, error) { return fsstore.New(root) }
