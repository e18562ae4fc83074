package fs

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/excalidrive/excalidrive/pkg/blob"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewWithPath(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func TestNew(t *testing.T) {
	t.Run("creates base directory", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "blobs")
		store, err := NewWithPath(base)
		if err != nil {
			t.Fatalf("failed to create store: %v", err)
		}
		defer store.Close()

		info, err := os.Stat(base)
		if err != nil {
			t.Fatalf("expected base directory to exist: %v", err)
		}
		if !info.IsDir() {
			t.Error("expected base path to be a directory")
		}
	})

	t.Run("rejects empty base path", func(t *testing.T) {
		if _, err := New(Config{}); err == nil {
			t.Error("expected error for empty base path")
		}
	})

	t.Run("rejects file as base path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := New(Config{BasePath: path}); err == nil {
			t.Error("expected error for non-directory base path")
		}
	})
}

func TestSaveAndRead(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	content := []byte(`{"type":"excalidraw","elements":[]}`)
	key := "owner-1/docs/a.excalidraw"

	if err := store.Save(ctx, key, content); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	got, err := store.Read(ctx, key)
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("content mismatch: got %q", got)
	}

	t.Run("overwrite replaces content", func(t *testing.T) {
		updated := []byte(`{"type":"excalidraw","elements":[{}]}`)
		if err := store.Save(ctx, key, updated); err != nil {
			t.Fatalf("failed to overwrite: %v", err)
		}
		got, err := store.Read(ctx, key)
		if err != nil {
			t.Fatalf("failed to read: %v", err)
		}
		if !bytes.Equal(got, updated) {
			t.Errorf("expected overwritten content, got %q", got)
		}
	})

	t.Run("missing key returns ErrKeyNotFound", func(t *testing.T) {
		if _, err := store.Read(ctx, "owner-1/missing"); !errors.Is(err, blob.ErrKeyNotFound) {
			t.Errorf("expected ErrKeyNotFound, got %v", err)
		}
	})
}

func TestDelete(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	t.Run("deletes a single blob", func(t *testing.T) {
		key := "owner-1/a.excalidraw"
		if err := store.Save(ctx, key, []byte("data")); err != nil {
			t.Fatal(err)
		}

		if err := store.Delete(ctx, key); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if _, err := store.Read(ctx, key); !errors.Is(err, blob.ErrKeyNotFound) {
			t.Errorf("expected ErrKeyNotFound after delete, got %v", err)
		}
	})

	t.Run("deletes a directory subtree", func(t *testing.T) {
		if err := store.Save(ctx, "owner-1/docs/a.excalidraw", []byte("a")); err != nil {
			t.Fatal(err)
		}
		if err := store.Save(ctx, "owner-1/docs/sub/b.excalidraw", []byte("b")); err != nil {
			t.Fatal(err)
		}

		if err := store.Delete(ctx, "owner-1/docs"); err != nil {
			t.Fatalf("failed to delete subtree: %v", err)
		}
		if _, err := store.Read(ctx, "owner-1/docs/sub/b.excalidraw"); !errors.Is(err, blob.ErrKeyNotFound) {
			t.Errorf("expected nested blob gone, got %v", err)
		}
	})

	t.Run("missing key is a no-op", func(t *testing.T) {
		if err := store.Delete(ctx, "owner-1/never-existed"); err != nil {
			t.Errorf("expected no error deleting missing key, got %v", err)
		}
	})
}

func TestRename(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	t.Run("renames a single blob", func(t *testing.T) {
		if err := store.Save(ctx, "owner-1/a.excalidraw", []byte("data")); err != nil {
			t.Fatal(err)
		}

		if err := store.Rename(ctx, "owner-1/a.excalidraw", "owner-1/docs/a.excalidraw"); err != nil {
			t.Fatalf("failed to rename: %v", err)
		}

		got, err := store.Read(ctx, "owner-1/docs/a.excalidraw")
		if err != nil {
			t.Fatalf("failed to read at new key: %v", err)
		}
		if string(got) != "data" {
			t.Errorf("content mismatch after rename: %q", got)
		}
		if _, err := store.Read(ctx, "owner-1/a.excalidraw"); !errors.Is(err, blob.ErrKeyNotFound) {
			t.Errorf("expected old key gone, got %v", err)
		}
	})

	t.Run("renames a directory subtree", func(t *testing.T) {
		if err := store.Save(ctx, "owner-1/old/sub/b.excalidraw", []byte("b")); err != nil {
			t.Fatal(err)
		}

		if err := store.Rename(ctx, "owner-1/old", "owner-1/new"); err != nil {
			t.Fatalf("failed to rename subtree: %v", err)
		}

		got, err := store.Read(ctx, "owner-1/new/sub/b.excalidraw")
		if err != nil {
			t.Fatalf("failed to read nested blob at new key: %v", err)
		}
		if string(got) != "b" {
			t.Errorf("nested content mismatch: %q", got)
		}
	})

	t.Run("missing source is a no-op", func(t *testing.T) {
		if err := store.Rename(ctx, "owner-1/missing", "owner-1/anywhere"); err != nil {
			t.Errorf("expected no error renaming missing key, got %v", err)
		}
	})
}

func TestKeyPathEscape(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	// Keys with traversal segments must stay inside the base directory.
	if err := store.Save(ctx, "../../etc/escape", []byte("x")); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	outside := filepath.Join(filepath.Dir(store.BasePath()), "etc", "escape")
	if _, err := os.Stat(outside); err == nil {
		t.Error("blob escaped the base directory")
	}
}

func TestKeyPathDottedNames(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	// Names containing consecutive dots are legitimate and must map to
	// distinct keys, not collapse onto each other.
	if err := store.Save(ctx, "owner-1/a..b.excalidraw", []byte("dotted")); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Save(ctx, "owner-1/ab.excalidraw", []byte("plain")); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	data, err := store.Read(ctx, "owner-1/a..b.excalidraw")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != "dotted" {
		t.Errorf("dotted name collided with another key: %q", data)
	}

	data, err = store.Read(ctx, "owner-1/ab.excalidraw")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != "plain" {
		t.Errorf("plain name collided with another key: %q", data)
	}
}

func TestClosedStore(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	if err := store.Save(ctx, "k", []byte("v")); !errors.Is(err, blob.ErrStoreClosed) {
		t.Errorf("expected ErrStoreClosed from Save, got %v", err)
	}
	if _, err := store.Read(ctx, "k"); !errors.Is(err, blob.ErrStoreClosed) {
		t.Errorf("expected ErrStoreClosed from Read, got %v", err)
	}
	if err := store.HealthCheck(ctx); !errors.Is(err, blob.ErrStoreClosed) {
		t.Errorf("expected ErrStoreClosed from HealthCheck, got %v", err)
	}
}
