package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewLocalStorage(dir, "/media/")
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}

	key := "uploads/abc.jpg"
	if err := store.Upload(ctx, key, bytes.NewReader([]byte("first")), 5, "image/jpeg"); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	// Same key overwrites.
	if err := store.Upload(ctx, key, bytes.NewReader([]byte("second")), 6, "image/jpeg"); err != nil {
		t.Fatalf("Upload() overwrite error = %v", err)
	}

	rc, err := store.Download(ctx, key)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "second" {
		t.Errorf("Download() = %q, want second", data)
	}

	entries, _ := os.ReadDir(filepath.Join(dir, "uploads"))
	if len(entries) != 1 {
		t.Errorf("expected exactly one file after overwrite, got %d", len(entries))
	}

	if got := store.GetURL(key); got != "/media/uploads/abc.jpg" {
		t.Errorf("GetURL() = %q", got)
	}

	ok, err := store.Exists(ctx, key)
	if err != nil || !ok {
		t.Errorf("Exists() = %v, %v", ok, err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Errorf("Delete() of missing key error = %v", err)
	}
	if _, err := store.Download(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Errorf("Download() after delete error = %v, want ErrNotFound", err)
	}
}

func TestLocalStorageKeysStayInsideBase(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(filepath.Join(dir, "base"), "/media")
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}
	if err := store.Upload(context.Background(), "../escape.txt", bytes.NewReader([]byte("x")), 1, "text/plain"); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.txt")); err == nil {
		t.Error("key escaped the base directory")
	}
	if _, err := os.Stat(filepath.Join(dir, "base", "escape.txt")); err != nil {
		t.Errorf("expected object inside base directory: %v", err)
	}
}
