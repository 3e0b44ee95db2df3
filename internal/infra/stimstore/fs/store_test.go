package fs

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"stimcore/internal/stimstore/core"
)

func newTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func TestNewMissingRootFails(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	_, err := New(missing)
	var msErr core.MissingStoreError
	if !errors.As(err, &msErr) {
		t.Fatalf("expected MissingStoreError, got %v", err)
	}
	if msErr.Driver != core.DriverFilesystem {
		t.Fatalf("driver %s", msErr.Driver)
	}
}

func TestPutOpenStatRoundTrip(t *testing.T) {
	store := newTempStore(t)
	ctx := context.Background()

	payload := "RIFF....WAVE"
	info, err := store.Put(ctx, "practice/exp_s1_a_b_1_word_c1.wav", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if info.Size != int64(len(payload)) {
		t.Fatalf("size %d, want %d", info.Size, len(payload))
	}

	got, rc, err := store.Open(ctx, "practice/exp_s1_a_b_1_word_c1.wav")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != payload {
		t.Fatalf("payload %q", data)
	}
	if got.Key != info.Key {
		t.Fatalf("key %s, want %s", got.Key, info.Key)
	}

	stat, err := store.Stat(ctx, info.Key)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if stat.Size != info.Size {
		t.Fatalf("stat size %d", stat.Size)
	}
}

func TestPutDuplicateFails(t *testing.T) {
	store := newTempStore(t)
	ctx := context.Background()
	if _, err := store.Put(ctx, "test/a.wav", strings.NewReader("x")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := store.Put(ctx, "test/a.wav", strings.NewReader("y")); err == nil {
		t.Fatalf("expected duplicate Put to fail")
	}
}

func TestListPrefixSorted(t *testing.T) {
	store := newTempStore(t)
	ctx := context.Background()
	for _, key := range []string{"test/b.wav", "test/a.wav", "practice/c.wav", "test/notes.txt"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x")); err != nil {
			t.Fatalf("Put %s: %v", key, err)
		}
	}
	infos, err := store.List(ctx, "test/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	keys := make([]string, len(infos))
	for i, info := range infos {
		keys[i] = info.Key
	}
	want := []string{"test/a.wav", "test/b.wav", "test/notes.txt"}
	if len(keys) != len(want) {
		t.Fatalf("keys %v", keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys %v, want %v", keys, want)
		}
	}
}

func TestDelete(t *testing.T) {
	store := newTempStore(t)
	ctx := context.Background()
	if _, err := store.Put(ctx, "test/a.wav", strings.NewReader("x")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	ok, err := store.Delete(ctx, "test/a.wav")
	if err != nil || !ok {
		t.Fatalf("Delete: ok=%v err=%v", ok, err)
	}
	ok, err = store.Delete(ctx, "test/a.wav")
	if err != nil || ok {
		t.Fatalf("second Delete: ok=%v err=%v", ok, err)
	}
}

func TestSanitizeKeyRejectsTraversal(t *testing.T) {
	store := newTempStore(t)
	ctx := context.Background()
	for _, key := range []string{"", "../escape.wav", "/abs.wav", "a/../../b.wav"} {
		if _, err := store.Stat(ctx, key); err == nil {
			t.Fatalf("key %q accepted", key)
		}
	}
}

func TestSignedURLStable(t *testing.T) {
	store := newTempStore(t)
	u, err := store.SignedURL(context.Background(), "test/a.wav", core.SignedURLOptions{})
	if err != nil {
		t.Fatalf("SignedURL: %v", err)
	}
	if u != "http://local.stimuli/test/a.wav" {
		t.Fatalf("url %s", u)
	}
}
