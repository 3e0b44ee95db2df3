package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"stimcore/internal/stimstore/core"
)

func TestPutOpenListDelete(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.Put(ctx, "practice/a.wav", strings.NewReader("aa")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := store.Put(ctx, "practice/a.wav", strings.NewReader("bb")); err == nil {
		t.Fatalf("expected duplicate Put to fail")
	}
	if _, err := store.Put(ctx, "test/b.wav", strings.NewReader("bb")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	info, rc, err := store.Open(ctx, "practice/a.wav")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "aa" || info.Size != 2 {
		t.Fatalf("payload %q size %d", data, info.Size)
	}

	infos, err := store.List(ctx, "practice/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 1 || infos[0].Key != "practice/a.wav" {
		t.Fatalf("infos %+v", infos)
	}

	ok, err := store.Delete(ctx, "practice/a.wav")
	if err != nil || !ok {
		t.Fatalf("Delete: ok=%v err=%v", ok, err)
	}
	if _, err := store.Stat(ctx, "practice/a.wav"); err == nil {
		t.Fatalf("Stat after delete succeeded")
	}
}

func TestSignedURLUnsupported(t *testing.T) {
	store := New()
	if _, err := store.SignedURL(context.Background(), "x", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("err %v", err)
	}
}
