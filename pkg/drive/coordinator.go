// Package drive implements the namespace coordinator: the single component
// that touches both the metadata store and the blob backend, in a fixed
// order, so the two stay consistent without distributed transactions.
//
// Write ordering:
//   - create: blob first, then metadata. A failed metadata insert triggers a
//     compensating blob delete; if that also fails the blob is logged as an
//     orphan and picked up by reconciliation.
//   - move: blob rename first, then metadata rewrite. A failed rewrite
//     triggers a compensating rename back.
//   - delete: blob delete is best effort, metadata delete is authoritative.
//     A failed blob delete leaves orphans, never dangling metadata.
//
// Every operation is scoped by owner. Items belonging to a different owner
// are reported as not found, never as forbidden.
package drive

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/excalidrive/excalidrive/internal/logger"
	"github.com/excalidrive/excalidrive/pkg/blob"
	"github.com/excalidrive/excalidrive/pkg/drive/models"
	"github.com/excalidrive/excalidrive/pkg/drive/pathutil"
	"github.com/excalidrive/excalidrive/pkg/drive/store"
)

// DefaultScene is the content of a freshly created drawing: an empty scene
// that the editor can open directly. Reads of files whose blob is missing
// also return it, so a half-failed create never breaks the client.
const DefaultScene = `{"type":"excalidraw","version":2,"source":"https://excalidraw.com","elements":[],"appState":{"viewBackgroundColor":"#ffffff","gridModeEnabled":false},"files":{}}`

// CreateRequest describes a new item. Content is the initial scene
// document for FILE items, empty for the default scene; folders ignore it.
type CreateRequest struct {
	Name     string
	Type     models.ItemType
	ParentID *string
	Content  []byte
}

// MoveRequest describes a rename and/or reparent of an existing item.
// Name is the desired leaf name, empty to keep the current one; ParentID
// the destination folder (nil for the owner root). Rename-in-place and
// move-to-folder are the same operation with different fields changing.
type MoveRequest struct {
	Name     string
	ParentID *string
}

// Coordinator orchestrates namespace operations across the metadata store
// and one blob backend.
//
// The backend is fixed at construction; items created through a coordinator
// are stamped with its provider tag, and operations refuse items stamped
// with a different tag (reported as not found) so a blob is never addressed
// through the wrong backend.
type Coordinator struct {
	store   store.Store
	blobs   blob.Adapter
	metrics Metrics
}

// NewCoordinator creates a coordinator over the given store and blob
// backend. metrics may be nil.
func NewCoordinator(st store.Store, blobs blob.Adapter, metrics Metrics) *Coordinator {
	return &Coordinator{
		store:   st,
		blobs:   blobs,
		metrics: metrics,
	}
}

// Provider returns the tag of the blob backend this coordinator writes to.
func (c *Coordinator) Provider() string {
	return c.blobs.Provider()
}

// Store exposes the metadata store, for health checks and shutdown wiring.
func (c *Coordinator) Store() store.Store {
	return c.store
}

// Blobs exposes the blob backend, for health checks and shutdown wiring.
func (c *Coordinator) Blobs() blob.Adapter {
	return c.blobs
}

// Create validates and persists a new item. For FILE items the default
// scene blob is written before the metadata record, so a visible file
// always has readable content.
func (c *Coordinator) Create(ctx context.Context, ownerID string, req CreateRequest) (item *models.FileSystemItem, err error) {
	start := time.Now()
	defer func() { observeOperation(c.metrics, "create", start, err) }()

	if !req.Type.IsValid() {
		return nil, models.ErrInvalidType
	}
	name, err := c.validateName(req.Name, req.Type == models.ItemTypeFile)
	if err != nil {
		return nil, err
	}

	parentPath, err := c.resolveParent(ctx, ownerID, req.ParentID)
	if err != nil {
		return nil, err
	}

	provider := c.blobs.Provider()
	if _, err := c.store.FindSibling(ctx, ownerID, req.ParentID, provider, name, ""); err == nil {
		return nil, models.ErrDuplicateName
	} else if !errors.Is(err, models.ErrItemNotFound) {
		return nil, err
	}

	item = &models.FileSystemItem{
		ID:              uuid.NewString(),
		Name:            name,
		Type:            req.Type,
		ParentID:        req.ParentID,
		OwnerID:         ownerID,
		Path:            pathutil.Resolve(parentPath, name),
		StorageProvider: provider,
	}

	// Blob before metadata: a record must never point at missing content.
	if item.IsFile() {
		content := req.Content
		if len(content) == 0 {
			content = []byte(DefaultScene)
		}
		if err := c.blobs.Save(ctx, item.StorageKey(), content); err != nil {
			logger.Error("blob save failed during create",
				logger.KeyOwnerID, ownerID,
				logger.KeyKey, item.StorageKey(),
				logger.KeyError, err)
			return nil, models.NewStorageError("save", err)
		}
	}

	if _, err := c.store.CreateItem(ctx, item); err != nil {
		if item.IsFile() {
			c.compensateCreate(ctx, item)
		}
		return nil, err
	}

	logger.Info("item created",
		logger.KeyOwnerID, ownerID,
		logger.KeyItemID, item.ID,
		logger.KeyItemType, string(item.Type),
		logger.KeyPath, item.Path)

	return item, nil
}

// compensateCreate removes the blob written for a create whose metadata
// insert failed. A failed compensation leaves an orphaned blob: content
// without a record, invisible to clients and safe to reap later.
func (c *Coordinator) compensateCreate(ctx context.Context, item *models.FileSystemItem) {
	if err := c.blobs.Delete(ctx, item.StorageKey()); err != nil {
		recordOrphanedBlob(c.metrics, c.blobs.Provider())
		logger.Error("orphaned blob: compensating delete failed after metadata insert error",
			logger.KeyOwnerID, item.OwnerID,
			logger.KeyKey, item.StorageKey(),
			logger.KeyProvider, c.blobs.Provider(),
			logger.KeyError, err)
	}
}

// Move renames and/or reparents an item. Blob content moves first so the
// storage key convention (ownerID + path) keeps holding for the rewritten
// metadata; descendants follow in the same metadata transaction.
func (c *Coordinator) Move(ctx context.Context, ownerID, id string, req MoveRequest) (item *models.FileSystemItem, err error) {
	start := time.Now()
	defer func() { observeOperation(c.metrics, "move", start, err) }()

	item, err = c.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	// An empty name keeps the current leaf name (pure move).
	name := item.Name
	if strings.TrimSpace(req.Name) != "" {
		name, err = c.validateName(req.Name, item.IsFile())
		if err != nil {
			return nil, err
		}
	}

	parentPath := ""
	if req.ParentID != nil {
		parent, err := c.getOwned(ctx, ownerID, *req.ParentID)
		if err != nil {
			return nil, models.ErrInvalidParent
		}
		if !parent.IsFolder() {
			return nil, models.ErrInvalidParent
		}
		// A folder cannot move under itself or any of its descendants.
		if item.IsFolder() && pathutil.IsAncestor(item.Path, parent.Path) {
			return nil, models.ErrCycleRejected
		}
		parentPath = parent.Path
	}

	oldPath := item.Path
	newPath := pathutil.Resolve(parentPath, name)
	if newPath == oldPath {
		return item, nil
	}

	if _, err := c.store.FindSibling(ctx, ownerID, req.ParentID, item.StorageProvider, name, item.ID); err == nil {
		return nil, models.ErrDuplicateName
	} else if !errors.Is(err, models.ErrItemNotFound) {
		return nil, err
	}

	oldKey := item.StorageKey()
	newKey := ownerID + newPath

	if err := c.blobs.Rename(ctx, oldKey, newKey); err != nil {
		logger.Error("blob rename failed during move",
			logger.KeyOwnerID, ownerID,
			logger.KeyItemID, item.ID,
			logger.KeyOldKey, oldKey,
			logger.KeyNewKey, newKey,
			logger.KeyError, err)
		return nil, models.NewStorageError("rename", err)
	}

	item.Name = name
	item.ParentID = req.ParentID
	item.Path = newPath

	if err := c.store.MoveSubtree(ctx, item, oldPath, newPath); err != nil {
		// Put the content back so metadata and blobs still agree.
		if rbErr := c.blobs.Rename(ctx, newKey, oldKey); rbErr != nil {
			recordOrphanedBlob(c.metrics, c.blobs.Provider())
			logger.Error("orphaned blob: compensating rename failed after metadata rewrite error",
				logger.KeyOwnerID, ownerID,
				logger.KeyOldKey, newKey,
				logger.KeyNewKey, oldKey,
				logger.KeyProvider, c.blobs.Provider(),
				logger.KeyError, rbErr)
		}
		return nil, err
	}

	logger.Info("item moved",
		logger.KeyOwnerID, ownerID,
		logger.KeyItemID, item.ID,
		logger.KeyOldPath, oldPath,
		logger.KeyNewPath, newPath)

	return item, nil
}

// Delete removes an item and, for folders, its whole subtree. The blob
// delete happens first but is best effort: a backend failure is logged and
// counted, then the metadata delete proceeds, so the namespace never shows
// items whose removal was requested. Leftover blobs are orphans for
// reconciliation.
func (c *Coordinator) Delete(ctx context.Context, ownerID, id string) (err error) {
	start := time.Now()
	defer func() { observeOperation(c.metrics, "delete", start, err) }()

	item, err := c.getOwned(ctx, ownerID, id)
	if err != nil {
		return err
	}

	if err := c.blobs.Delete(ctx, item.StorageKey()); err != nil {
		recordOrphanedBlob(c.metrics, c.blobs.Provider())
		logger.Warn("orphaned blob: delete failed on storage backend, removing metadata anyway",
			logger.KeyOwnerID, ownerID,
			logger.KeyItemID, item.ID,
			logger.KeyKey, item.StorageKey(),
			logger.KeyProvider, c.blobs.Provider(),
			logger.KeyError, err)
	}

	if err := c.store.DeleteSubtree(ctx, ownerID, item.ID, item.Path); err != nil {
		return err
	}

	logger.Info("item deleted",
		logger.KeyOwnerID, ownerID,
		logger.KeyItemID, item.ID,
		logger.KeyPath, item.Path)

	return nil
}

// Get returns a single owned item.
func (c *Coordinator) Get(ctx context.Context, ownerID, id string) (*models.FileSystemItem, error) {
	return c.getOwned(ctx, ownerID, id)
}

// List returns the owner's flat record set on this coordinator's backend,
// in creation order. Clients assemble the hierarchy from ParentID, or use
// pkg/drive/tree.
func (c *Coordinator) List(ctx context.Context, ownerID string) (items []*models.FileSystemItem, err error) {
	start := time.Now()
	defer func() { observeOperation(c.metrics, "list", start, err) }()

	items, err = c.store.ListItems(ctx, ownerID, c.blobs.Provider())
	return items, err
}

// ReadContent returns the blob content of a FILE item. A missing blob
// yields the default scene instead of an error: absence of content is a
// recoverable state, not a failure.
func (c *Coordinator) ReadContent(ctx context.Context, ownerID, id string) (data []byte, err error) {
	start := time.Now()
	defer func() { observeOperation(c.metrics, "read_content", start, err) }()

	item, err := c.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if !item.IsFile() {
		return nil, models.ErrNotFile
	}

	data, err = c.blobs.Read(ctx, item.StorageKey())
	if err != nil {
		if errors.Is(err, blob.ErrKeyNotFound) {
			logger.Warn("blob missing for file, serving default scene",
				logger.KeyOwnerID, ownerID,
				logger.KeyItemID, item.ID,
				logger.KeyKey, item.StorageKey())
			return []byte(DefaultScene), nil
		}
		return nil, models.NewStorageError("read", err)
	}

	return data, nil
}

// SaveContent overwrites the blob content of a FILE item and bumps its
// updated_at timestamp.
func (c *Coordinator) SaveContent(ctx context.Context, ownerID, id string, data []byte) (err error) {
	start := time.Now()
	defer func() { observeOperation(c.metrics, "save_content", start, err) }()

	item, err := c.getOwned(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if !item.IsFile() {
		return models.ErrNotFile
	}

	if err := c.blobs.Save(ctx, item.StorageKey(), data); err != nil {
		logger.Error("blob save failed during content update",
			logger.KeyOwnerID, ownerID,
			logger.KeyItemID, item.ID,
			logger.KeyKey, item.StorageKey(),
			logger.KeySize, len(data),
			logger.KeyError, err)
		return models.NewStorageError("save", err)
	}

	return c.store.TouchItem(ctx, item.ID)
}

// HealthCheck verifies both the metadata store and the blob backend.
func (c *Coordinator) HealthCheck(ctx context.Context) error {
	if err := c.store.HealthCheck(ctx); err != nil {
		return err
	}
	return c.blobs.HealthCheck(ctx)
}

// getOwned loads an item and enforces owner and backend scoping. Foreign
// owners and foreign providers both read as not found.
func (c *Coordinator) getOwned(ctx context.Context, ownerID, id string) (*models.FileSystemItem, error) {
	item, err := c.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != ownerID || item.StorageProvider != c.blobs.Provider() {
		return nil, models.ErrItemNotFound
	}
	return item, nil
}

// resolveParent validates the destination folder of a create and returns
// its path ("" for the owner root).
func (c *Coordinator) resolveParent(ctx context.Context, ownerID string, parentID *string) (string, error) {
	if parentID == nil {
		return "", nil
	}
	parent, err := c.getOwned(ctx, ownerID, *parentID)
	if err != nil {
		return "", models.ErrInvalidParent
	}
	if !parent.IsFolder() {
		return "", models.ErrInvalidParent
	}
	return parent.Path, nil
}

// validateName trims and canonicalizes a leaf name. FILE names always carry
// the content-type suffix in storage.
func (c *Coordinator) validateName(name string, isFile bool) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, "/") {
		return "", models.ErrInvalidName
	}
	return pathutil.CanonicalName(name, isFile), nil
}
