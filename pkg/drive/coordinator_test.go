package drive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/excalidrive/excalidrive/pkg/blob"
	"github.com/excalidrive/excalidrive/pkg/blob/memory"
	"github.com/excalidrive/excalidrive/pkg/drive/models"
	"github.com/excalidrive/excalidrive/pkg/drive/store"
)

const testOwner = "owner-1"

func createTestCoordinator(t *testing.T) (*Coordinator, *memory.Store) {
	t.Helper()

	st, err := store.New(&store.Config{
		Type:   store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{Path: ":memory:"},
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	blobs := memory.New()
	return NewCoordinator(st, blobs, nil), blobs
}

// failingAdapter wraps a blob adapter and fails selected operations, for
// exercising the compensation paths.
type failingAdapter struct {
	blob.Adapter
	failSave   bool
	failDelete bool
	failRename bool
}

var errInjected = errors.New("injected backend failure")

func (f *failingAdapter) Save(ctx context.Context, key string, data []byte) error {
	if f.failSave {
		return errInjected
	}
	return f.Adapter.Save(ctx, key, data)
}

func (f *failingAdapter) Delete(ctx context.Context, key string) error {
	if f.failDelete {
		return errInjected
	}
	return f.Adapter.Delete(ctx, key)
}

func (f *failingAdapter) Rename(ctx context.Context, oldKey, newKey string) error {
	if f.failRename {
		return errInjected
	}
	return f.Adapter.Rename(ctx, oldKey, newKey)
}

func mustCreate(t *testing.T, c *Coordinator, req CreateRequest) *models.FileSystemItem {
	t.Helper()

	item, err := c.Create(context.Background(), testOwner, req)
	if err != nil {
		t.Fatalf("failed to create %q: %v", req.Name, err)
	}
	return item
}

func strptr(s string) *string { return &s }

func TestCreate(t *testing.T) {
	c, blobs := createTestCoordinator(t)
	ctx := context.Background()

	t.Run("folder at root", func(t *testing.T) {
		item := mustCreate(t, c, CreateRequest{Name: "docs", Type: models.ItemTypeFolder})

		if item.Path != "/docs" {
			t.Errorf("expected path /docs, got %s", item.Path)
		}
		if item.ParentID != nil {
			t.Error("expected nil parent for root item")
		}
		// Folders own no blob.
		if blobs.Len() != 0 {
			t.Errorf("expected no blobs after folder create, got %d", blobs.Len())
		}
	})

	t.Run("file gets suffix and default scene", func(t *testing.T) {
		item := mustCreate(t, c, CreateRequest{Name: "sketch", Type: models.ItemTypeFile})

		if item.Name != "sketch.excalidraw" {
			t.Errorf("expected canonical name, got %s", item.Name)
		}
		if item.Path != "/sketch.excalidraw" {
			t.Errorf("unexpected path %s", item.Path)
		}

		data, err := blobs.Read(ctx, item.StorageKey())
		if err != nil {
			t.Fatalf("expected blob written before metadata: %v", err)
		}
		if string(data) != DefaultScene {
			t.Errorf("expected default scene, got %q", data)
		}
	})

	t.Run("file with initial content", func(t *testing.T) {
		scene := `{"type":"excalidraw","version":2,"elements":[{"id":"rect-1"}]}`
		item := mustCreate(t, c, CreateRequest{
			Name:    "prefilled",
			Type:    models.ItemTypeFile,
			Content: []byte(scene),
		})

		data, err := blobs.Read(ctx, item.StorageKey())
		if err != nil {
			t.Fatalf("expected blob written before metadata: %v", err)
		}
		if string(data) != scene {
			t.Errorf("expected supplied content, got %q", data)
		}
	})

	t.Run("file in folder", func(t *testing.T) {
		docs := mustCreate(t, c, CreateRequest{Name: "nested", Type: models.ItemTypeFolder})
		item := mustCreate(t, c, CreateRequest{Name: "a", Type: models.ItemTypeFile, ParentID: &docs.ID})

		if item.Path != "/nested/a.excalidraw" {
			t.Errorf("unexpected path %s", item.Path)
		}
		if item.StorageKey() != testOwner+"/nested/a.excalidraw" {
			t.Errorf("unexpected storage key %s", item.StorageKey())
		}
	})

	t.Run("duplicate sibling rejected", func(t *testing.T) {
		mustCreate(t, c, CreateRequest{Name: "dup", Type: models.ItemTypeFolder})
		_, err := c.Create(ctx, testOwner, CreateRequest{Name: "dup", Type: models.ItemTypeFolder})
		if !errors.Is(err, models.ErrDuplicateName) {
			t.Errorf("expected ErrDuplicateName, got %v", err)
		}
	})

	t.Run("same name different parent allowed", func(t *testing.T) {
		folder := mustCreate(t, c, CreateRequest{Name: "other", Type: models.ItemTypeFolder})
		mustCreate(t, c, CreateRequest{Name: "dup", Type: models.ItemTypeFolder, ParentID: &folder.ID})
	})

	t.Run("missing parent rejected", func(t *testing.T) {
		_, err := c.Create(ctx, testOwner, CreateRequest{Name: "x", Type: models.ItemTypeFile, ParentID: strptr("nope")})
		if !errors.Is(err, models.ErrInvalidParent) {
			t.Errorf("expected ErrInvalidParent, got %v", err)
		}
	})

	t.Run("file parent rejected", func(t *testing.T) {
		f := mustCreate(t, c, CreateRequest{Name: "leaf", Type: models.ItemTypeFile})
		_, err := c.Create(ctx, testOwner, CreateRequest{Name: "x", Type: models.ItemTypeFile, ParentID: &f.ID})
		if !errors.Is(err, models.ErrInvalidParent) {
			t.Errorf("expected ErrInvalidParent, got %v", err)
		}
	})

	t.Run("foreign owner parent rejected", func(t *testing.T) {
		docs := mustCreate(t, c, CreateRequest{Name: "mine", Type: models.ItemTypeFolder})
		_, err := c.Create(ctx, "owner-2", CreateRequest{Name: "x", Type: models.ItemTypeFile, ParentID: &docs.ID})
		if !errors.Is(err, models.ErrInvalidParent) {
			t.Errorf("expected ErrInvalidParent, got %v", err)
		}
	})

	t.Run("invalid names rejected", func(t *testing.T) {
		for _, name := range []string{"", "   ", "a/b"} {
			if _, err := c.Create(ctx, testOwner, CreateRequest{Name: name, Type: models.ItemTypeFolder}); !errors.Is(err, models.ErrInvalidName) {
				t.Errorf("expected ErrInvalidName for %q, got %v", name, err)
			}
		}
	})

	t.Run("invalid type rejected", func(t *testing.T) {
		_, err := c.Create(ctx, testOwner, CreateRequest{Name: "x", Type: "SYMLINK"})
		if !errors.Is(err, models.ErrInvalidType) {
			t.Errorf("expected ErrInvalidType, got %v", err)
		}
	})
}

func TestCreateStorageFailure(t *testing.T) {
	c, _ := createTestCoordinator(t)
	ctx := context.Background()

	failing := &failingAdapter{Adapter: memory.New(), failSave: true}
	c = NewCoordinator(c.store, failing, nil)

	_, err := c.Create(ctx, testOwner, CreateRequest{Name: "a", Type: models.ItemTypeFile})
	if !models.IsStorageError(err) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	// Opaque to clients, cause preserved for logging.
	if err.Error() != "storage backend failure during save" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, errInjected) {
		t.Error("expected cause preserved via Unwrap")
	}

	// No metadata record may exist for the failed create.
	items, err := c.List(ctx, testOwner)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Errorf("expected no records after failed blob save, got %d", len(items))
	}
}

// failingStore wraps a metadata store and fails CreateItem, for exercising
// the compensating blob delete.
type failingStore struct {
	store.Store
}

func (f *failingStore) CreateItem(ctx context.Context, item *models.FileSystemItem) (string, error) {
	return "", errInjected
}

func TestCreateCompensation(t *testing.T) {
	c, _ := createTestCoordinator(t)
	ctx := context.Background()

	t.Run("failed insert deletes the blob", func(t *testing.T) {
		blobs := memory.New()
		fc := NewCoordinator(&failingStore{Store: c.store}, blobs, nil)

		_, err := fc.Create(ctx, testOwner, CreateRequest{Name: "a", Type: models.ItemTypeFile})
		if !errors.Is(err, errInjected) {
			t.Fatalf("expected injected store error, got %v", err)
		}
		if blobs.Len() != 0 {
			t.Errorf("expected compensating delete to remove the blob, got %d keys", blobs.Len())
		}
	})

	t.Run("failed compensation leaves an orphan", func(t *testing.T) {
		blobs := memory.New()
		failing := &failingAdapter{Adapter: blobs, failDelete: true}
		fc := NewCoordinator(&failingStore{Store: c.store}, failing, nil)

		_, err := fc.Create(ctx, testOwner, CreateRequest{Name: "a", Type: models.ItemTypeFile})
		if !errors.Is(err, errInjected) {
			t.Fatalf("expected injected store error, got %v", err)
		}
		// The blob stays behind as a reconciliation candidate.
		if blobs.Len() != 1 {
			t.Errorf("expected orphaned blob to remain, got %d keys", blobs.Len())
		}
	})
}

func TestMove(t *testing.T) {
	c, blobs := createTestCoordinator(t)
	ctx := context.Background()

	t.Run("rename in place", func(t *testing.T) {
		item := mustCreate(t, c, CreateRequest{Name: "a", Type: models.ItemTypeFile})

		moved, err := c.Move(ctx, testOwner, item.ID, MoveRequest{Name: "b"})
		if err != nil {
			t.Fatalf("failed to rename: %v", err)
		}
		if moved.Name != "b.excalidraw" || moved.Path != "/b.excalidraw" {
			t.Errorf("unexpected result %s %s", moved.Name, moved.Path)
		}

		if _, err := blobs.Read(ctx, testOwner+"/b.excalidraw"); err != nil {
			t.Errorf("blob not moved to new key: %v", err)
		}
		if _, err := blobs.Read(ctx, testOwner+"/a.excalidraw"); !errors.Is(err, blob.ErrKeyNotFound) {
			t.Errorf("blob still at old key: %v", err)
		}
	})

	t.Run("move folder with descendants", func(t *testing.T) {
		src := mustCreate(t, c, CreateRequest{Name: "src", Type: models.ItemTypeFolder})
		dst := mustCreate(t, c, CreateRequest{Name: "dst", Type: models.ItemTypeFolder})
		child := mustCreate(t, c, CreateRequest{Name: "deep", Type: models.ItemTypeFile, ParentID: &src.ID})

		if _, err := c.Move(ctx, testOwner, src.ID, MoveRequest{Name: "src", ParentID: &dst.ID}); err != nil {
			t.Fatalf("failed to move folder: %v", err)
		}

		got, err := c.Get(ctx, testOwner, child.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Path != "/dst/src/deep.excalidraw" {
			t.Errorf("descendant path not rewritten: %s", got.Path)
		}
		if _, err := blobs.Read(ctx, testOwner+"/dst/src/deep.excalidraw"); err != nil {
			t.Errorf("descendant blob not moved: %v", err)
		}
	})

	t.Run("empty name keeps current name", func(t *testing.T) {
		folder := mustCreate(t, c, CreateRequest{Name: "kept", Type: models.ItemTypeFolder})
		item := mustCreate(t, c, CreateRequest{Name: "plain", Type: models.ItemTypeFile})

		moved, err := c.Move(ctx, testOwner, item.ID, MoveRequest{ParentID: &folder.ID})
		if err != nil {
			t.Fatalf("failed to move without a name: %v", err)
		}
		if moved.Name != "plain.excalidraw" {
			t.Errorf("expected name to survive the move, got %s", moved.Name)
		}
		if moved.Path != "/kept/plain.excalidraw" {
			t.Errorf("unexpected path %s", moved.Path)
		}
		if _, err := blobs.Read(ctx, testOwner+"/kept/plain.excalidraw"); err != nil {
			t.Errorf("blob not moved to new key: %v", err)
		}
	})

	t.Run("no-op when nothing changes", func(t *testing.T) {
		item := mustCreate(t, c, CreateRequest{Name: "still", Type: models.ItemTypeFolder})
		moved, err := c.Move(ctx, testOwner, item.ID, MoveRequest{Name: "still"})
		if err != nil {
			t.Fatalf("expected no-op move to succeed: %v", err)
		}
		if moved.Path != item.Path {
			t.Errorf("no-op move changed path to %s", moved.Path)
		}
	})

	t.Run("cycle rejected", func(t *testing.T) {
		outer := mustCreate(t, c, CreateRequest{Name: "outer", Type: models.ItemTypeFolder})
		inner := mustCreate(t, c, CreateRequest{Name: "inner", Type: models.ItemTypeFolder, ParentID: &outer.ID})

		if _, err := c.Move(ctx, testOwner, outer.ID, MoveRequest{Name: "outer", ParentID: &inner.ID}); !errors.Is(err, models.ErrCycleRejected) {
			t.Errorf("expected ErrCycleRejected for move into descendant, got %v", err)
		}
		if _, err := c.Move(ctx, testOwner, outer.ID, MoveRequest{Name: "outer", ParentID: &outer.ID}); !errors.Is(err, models.ErrCycleRejected) {
			t.Errorf("expected ErrCycleRejected for move into self, got %v", err)
		}
	})

	t.Run("sibling prefix is not a cycle", func(t *testing.T) {
		a := mustCreate(t, c, CreateRequest{Name: "pre", Type: models.ItemTypeFolder})
		ab := mustCreate(t, c, CreateRequest{Name: "prefix", Type: models.ItemTypeFolder})

		// "/pre" is not an ancestor of "/prefix".
		if _, err := c.Move(ctx, testOwner, a.ID, MoveRequest{Name: "pre", ParentID: &ab.ID}); err != nil {
			t.Errorf("expected move under string-prefix sibling to succeed: %v", err)
		}
	})

	t.Run("duplicate at destination rejected", func(t *testing.T) {
		mustCreate(t, c, CreateRequest{Name: "taken", Type: models.ItemTypeFile})
		other := mustCreate(t, c, CreateRequest{Name: "mover", Type: models.ItemTypeFile})

		if _, err := c.Move(ctx, testOwner, other.ID, MoveRequest{Name: "taken"}); !errors.Is(err, models.ErrDuplicateName) {
			t.Errorf("expected ErrDuplicateName, got %v", err)
		}
	})

	t.Run("missing item", func(t *testing.T) {
		if _, err := c.Move(ctx, testOwner, "missing", MoveRequest{Name: "x"}); !errors.Is(err, models.ErrItemNotFound) {
			t.Errorf("expected ErrItemNotFound, got %v", err)
		}
	})

	t.Run("foreign owner reads as missing", func(t *testing.T) {
		item := mustCreate(t, c, CreateRequest{Name: "private", Type: models.ItemTypeFile})
		if _, err := c.Move(ctx, "owner-2", item.ID, MoveRequest{Name: "stolen"}); !errors.Is(err, models.ErrItemNotFound) {
			t.Errorf("expected ErrItemNotFound, got %v", err)
		}
	})
}

func TestMoveStorageFailure(t *testing.T) {
	c, blobs := createTestCoordinator(t)
	ctx := context.Background()

	item := mustCreate(t, c, CreateRequest{Name: "a", Type: models.ItemTypeFile})

	failing := &failingAdapter{Adapter: blobs, failRename: true}
	fc := NewCoordinator(c.store, failing, nil)

	_, err := fc.Move(ctx, testOwner, item.ID, MoveRequest{Name: "b"})
	if !models.IsStorageError(err) {
		t.Fatalf("expected StorageError, got %v", err)
	}

	// Metadata must be untouched after the aborted move.
	got, err := c.Get(ctx, testOwner, item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Path != "/a.excalidraw" {
		t.Errorf("metadata changed despite failed blob rename: %s", got.Path)
	}
}

func TestDelete(t *testing.T) {
	c, blobs := createTestCoordinator(t)
	ctx := context.Background()

	t.Run("file removes record and blob", func(t *testing.T) {
		item := mustCreate(t, c, CreateRequest{Name: "a", Type: models.ItemTypeFile})

		if err := c.Delete(ctx, testOwner, item.ID); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if _, err := c.Get(ctx, testOwner, item.ID); !errors.Is(err, models.ErrItemNotFound) {
			t.Errorf("record survived delete: %v", err)
		}
		if _, err := blobs.Read(ctx, item.StorageKey()); !errors.Is(err, blob.ErrKeyNotFound) {
			t.Errorf("blob survived delete: %v", err)
		}
	})

	t.Run("folder removes subtree", func(t *testing.T) {
		docs := mustCreate(t, c, CreateRequest{Name: "docs", Type: models.ItemTypeFolder})
		child := mustCreate(t, c, CreateRequest{Name: "a", Type: models.ItemTypeFile, ParentID: &docs.ID})

		if err := c.Delete(ctx, testOwner, docs.ID); err != nil {
			t.Fatalf("failed to delete folder: %v", err)
		}
		if _, err := c.Get(ctx, testOwner, child.ID); !errors.Is(err, models.ErrItemNotFound) {
			t.Errorf("descendant record survived: %v", err)
		}
		if _, err := blobs.Read(ctx, child.StorageKey()); !errors.Is(err, blob.ErrKeyNotFound) {
			t.Errorf("descendant blob survived: %v", err)
		}
	})

	t.Run("blob failure does not block metadata delete", func(t *testing.T) {
		item := mustCreate(t, c, CreateRequest{Name: "orphan", Type: models.ItemTypeFile})

		failing := &failingAdapter{Adapter: blobs, failDelete: true}
		fc := NewCoordinator(c.store, failing, nil)

		if err := fc.Delete(ctx, testOwner, item.ID); err != nil {
			t.Fatalf("expected delete to proceed past blob failure: %v", err)
		}
		if _, err := c.Get(ctx, testOwner, item.ID); !errors.Is(err, models.ErrItemNotFound) {
			t.Errorf("record survived best-effort delete: %v", err)
		}
		// The blob is orphaned, not lost metadata.
		if _, err := blobs.Read(ctx, item.StorageKey()); err != nil {
			t.Errorf("expected orphaned blob to remain: %v", err)
		}
	})

	t.Run("missing item", func(t *testing.T) {
		if err := c.Delete(ctx, testOwner, "missing"); !errors.Is(err, models.ErrItemNotFound) {
			t.Errorf("expected ErrItemNotFound, got %v", err)
		}
	})
}

func TestContent(t *testing.T) {
	c, _ := createTestCoordinator(t)
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		item := mustCreate(t, c, CreateRequest{Name: "a", Type: models.ItemTypeFile})

		scene := []byte(`{"type":"excalidraw","elements":[{"id":"r1"}]}`)
		if err := c.SaveContent(ctx, testOwner, item.ID, scene); err != nil {
			t.Fatalf("failed to save content: %v", err)
		}

		got, err := c.ReadContent(ctx, testOwner, item.ID)
		if err != nil {
			t.Fatalf("failed to read content: %v", err)
		}
		if string(got) != string(scene) {
			t.Errorf("content mismatch: %q", got)
		}
	})

	t.Run("missing blob serves default scene", func(t *testing.T) {
		item := mustCreate(t, c, CreateRequest{Name: "hollow", Type: models.ItemTypeFile})
		if err := c.blobs.Delete(ctx, item.StorageKey()); err != nil {
			t.Fatal(err)
		}

		got, err := c.ReadContent(ctx, testOwner, item.ID)
		if err != nil {
			t.Fatalf("expected default scene, got error: %v", err)
		}
		if string(got) != DefaultScene {
			t.Errorf("expected default scene, got %q", got)
		}
	})

	t.Run("folder has no content", func(t *testing.T) {
		folder := mustCreate(t, c, CreateRequest{Name: "docs", Type: models.ItemTypeFolder})

		if _, err := c.ReadContent(ctx, testOwner, folder.ID); !errors.Is(err, models.ErrNotFile) {
			t.Errorf("expected ErrNotFile from read, got %v", err)
		}
		if err := c.SaveContent(ctx, testOwner, folder.ID, []byte("x")); !errors.Is(err, models.ErrNotFile) {
			t.Errorf("expected ErrNotFile from save, got %v", err)
		}
	})

	t.Run("foreign owner reads as missing", func(t *testing.T) {
		item := mustCreate(t, c, CreateRequest{Name: "secret", Type: models.ItemTypeFile})
		if _, err := c.ReadContent(ctx, "owner-2", item.ID); !errors.Is(err, models.ErrItemNotFound) {
			t.Errorf("expected ErrItemNotFound, got %v", err)
		}
	})
}

func TestList(t *testing.T) {
	c, _ := createTestCoordinator(t)
	ctx := context.Background()

	docs := mustCreate(t, c, CreateRequest{Name: "docs", Type: models.ItemTypeFolder})
	mustCreate(t, c, CreateRequest{Name: "a", Type: models.ItemTypeFile, ParentID: &docs.ID})

	other, err := c.Create(ctx, "owner-2", CreateRequest{Name: "theirs", Type: models.ItemTypeFolder})
	if err != nil {
		t.Fatal(err)
	}

	items, err := c.List(ctx, testOwner)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	for _, it := range items {
		if it.ID == other.ID {
			t.Error("list leaked a foreign owner's item")
		}
	}
}

// captureMetrics records the last observed operation, for asserting what
// the coordinator reports.
type captureMetrics struct {
	operation string
	err       error
	orphans   int
}

func (m *captureMetrics) ObserveOperation(operation string, duration time.Duration, err error) {
	m.operation = operation
	m.err = err
}

func (m *captureMetrics) RecordOrphanedBlob(provider string) {
	m.orphans++
}

func TestOperationMetrics(t *testing.T) {
	st, err := store.New(&store.Config{
		Type:   store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{Path: ":memory:"},
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	capture := &captureMetrics{}
	c := NewCoordinator(st, memory.New(), capture)
	ctx := context.Background()

	t.Run("success observed with nil error", func(t *testing.T) {
		mustCreate(t, c, CreateRequest{Name: "docs", Type: models.ItemTypeFolder})

		if capture.operation != "create" {
			t.Errorf("expected create observation, got %q", capture.operation)
		}
		if capture.err != nil {
			t.Errorf("expected nil error for successful create, got %v", capture.err)
		}
	})

	t.Run("failure observed with the error", func(t *testing.T) {
		err := c.Delete(ctx, testOwner, "missing")
		if !errors.Is(err, models.ErrItemNotFound) {
			t.Fatalf("expected ErrItemNotFound, got %v", err)
		}

		if capture.operation != "delete" {
			t.Errorf("expected delete observation, got %q", capture.operation)
		}
		if !errors.Is(capture.err, models.ErrItemNotFound) {
			t.Errorf("expected failure recorded with its error, got %v", capture.err)
		}
	})
}
