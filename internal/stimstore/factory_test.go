package stimstore

import (
	"context"
	"testing"
)

func TestOpenDefaultsToFilesystem(t *testing.T) {
	t.Setenv("STIMCORE_STIMULI_DRIVER", "")
	t.Setenv("STIMCORE_STIMULI_FS_ROOT", t.TempDir())
	store, err := Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if store.Driver() != DriverFilesystem {
		t.Fatalf("driver %s", store.Driver())
	}
}

func TestOpenMemoryDriver(t *testing.T) {
	t.Setenv("STIMCORE_STIMULI_DRIVER", "memory")
	store, err := Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if store.Driver() != DriverMemory {
		t.Fatalf("driver %s", store.Driver())
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Setenv("STIMCORE_STIMULI_DRIVER", "tape")
	if _, err := Open(context.Background()); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestOpenMissingFilesystemRoot(t *testing.T) {
	t.Setenv("STIMCORE_STIMULI_DRIVER", "fs")
	t.Setenv("STIMCORE_STIMULI_FS_ROOT", t.TempDir()+"/does-not-exist")
	if _, err := Open(context.Background()); err == nil {
		t.Fatalf("expected error for missing root")
	}
}
