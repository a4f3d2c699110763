package filekv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hylla/syncnotes/internal/app"
)

var _ app.KeyValueStore = (*Store)(nil)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "data")
	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, ok, err := store.Get(ctx, app.MeetingsKey); err != nil || ok {
		t.Fatalf("Get() missing = %v, %v", ok, err)
	}
	if err := store.Put(ctx, app.MeetingsKey, []byte(`[]`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Put(ctx, app.MeetingsKey, []byte(`[{"id":"m1"}]`)); err != nil {
		t.Fatalf("Put() overwrite error = %v", err)
	}
	value, ok, err := store.Get(ctx, app.MeetingsKey)
	if err != nil || !ok || string(value) != `[{"id":"m1"}]` {
		t.Fatalf("Get() = %q, %v, %v", value, ok, err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, app.MeetingsKey+".json"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(raw) != `[{"id":"m1"}]` {
		t.Fatalf("unexpected file content %q", raw)
	}
}

func TestStoreRejectsInvalidKeys(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	for _, key := range []string{"", "../escape", "a/b", ".."} {
		if err := store.Put(context.Background(), key, []byte("x")); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("Put(%q) expected ErrInvalidKey, got %v", key, err)
		}
	}
}

func TestStoreHonorsCanceledContext(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.Put(ctx, "k", []byte("v")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
