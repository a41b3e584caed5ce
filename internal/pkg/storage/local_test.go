package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aiphoto/backend/config"
)

func newLocalStore(t *testing.T, dir, baseURL string) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(dir, baseURL)
	if err != nil {
		t.Fatalf("NewLocalStore error: %v", err)
	}
	return store
}

func TestLocalStore_Put(t *testing.T) {
	dir := t.TempDir()
	store := newLocalStore(t, dir, "/static/")

	url, err := store.Put(context.Background(), []byte("png-bytes"), "generated/cover_1.png", "image/png")
	if err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if url != "/static/generated/cover_1.png" {
		t.Fatalf("unexpected url: %s", url)
	}

	data, err := os.ReadFile(filepath.Join(dir, "generated", "cover_1.png"))
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Fatalf("unexpected content: %q", data)
	}
}

func TestLocalStore_RejectsBadKeys(t *testing.T) {
	store := newLocalStore(t, t.TempDir(), "")

	for _, key := range []string{"", "../escape.png", "/abs.png"} {
		if _, err := store.Put(context.Background(), []byte("x"), key, "image/png"); err == nil {
			t.Fatalf("key %q should be rejected", key)
		}
	}
}

func TestLocalStore_CanceledContext(t *testing.T) {
	store := newLocalStore(t, t.TempDir(), "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Put(ctx, []byte("x"), "a.png", "image/png"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNew(t *testing.T) {
	store, err := New(context.Background(), config.StorageConfig{Type: "local", Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if _, ok := store.(*LocalStore); !ok {
		t.Fatalf("expected *LocalStore, got %T", store)
	}

	if _, err := New(context.Background(), config.StorageConfig{Type: "s3"}); err == nil {
		t.Fatalf("expected error for unsupported storage type")
	}
}

func TestPublicURL(t *testing.T) {
	tests := []struct {
		base, key, want string
	}{
		{"", "generated/a.png", "generated/a.png"},
		{"https://cdn.example.com/", "generated/a.png", "https://cdn.example.com/generated/a.png"},
	}
	for _, tt := range tests {
		if got := publicURL(tt.base, tt.key); got != tt.want {
			t.Fatalf("publicURL(%q, %q) = %q, want %q", tt.base, tt.key, got, tt.want)
		}
	}
}

func TestLocalStore_Get(t *testing.T) {
	store := newLocalStore(t, t.TempDir(), "/static")
	if _, err := store.Put(context.Background(), []byte("jpeg-bytes"), "generated/reference_1.jpg", "image/jpeg"); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	data, contentType, err := store.Get(context.Background(), "generated/reference_1.jpg")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if string(data) != "jpeg-bytes" || contentType != "image/jpeg" {
		t.Fatalf("unexpected object: %q %s", data, contentType)
	}

	if _, _, err := store.Get(context.Background(), "generated/missing.png"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}
