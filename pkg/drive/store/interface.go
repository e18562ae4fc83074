// Package store provides the relational metadata index for the drive
// namespace.
//
// Two backends are supported via the same GORM codebase:
//   - SQLite (single-node, default)
//   - PostgreSQL (shared deployments)
//
// The store owns referential and uniqueness invariants as a backstop; the
// coordinator in pkg/drive performs the primary validation before mutating.
package store

import (
	"context"

	"github.com/excalidrive/excalidrive/pkg/drive/models"
)

// Store is the metadata persistence interface.
//
// Thread safety: implementations must be safe for concurrent use from
// multiple goroutines. No cross-call transaction is exposed; the multi-row
// operations (MoveSubtree, DeleteSubtree) are internally atomic where the
// backend supports transactions.
type Store interface {
	// GetItem returns an item by ID.
	// Returns models.ErrItemNotFound if no item has this ID.
	GetItem(ctx context.Context, id string) (*models.FileSystemItem, error)

	// ListItems returns the flat record set for one owner on one storage
	// provider, ordered by creation time. This is the read-tree operation;
	// callers assemble the hierarchy client-side or via pkg/drive/tree.
	ListItems(ctx context.Context, ownerID, provider string) ([]*models.FileSystemItem, error)

	// FindSibling returns the non-deleted item with the given name under
	// (ownerID, parentID, provider), excluding excludeID when non-empty.
	// Returns models.ErrItemNotFound when no such sibling exists.
	FindSibling(ctx context.Context, ownerID string, parentID *string, provider, name, excludeID string) (*models.FileSystemItem, error)

	// CreateItem persists a new item. The ID is generated if empty and
	// returned. Returns models.ErrDuplicateItem on a uniqueness violation.
	CreateItem(ctx context.Context, item *models.FileSystemItem) (string, error)

	// UpdateItem updates name, parent, path and updated_at of an existing
	// item. Returns models.ErrItemNotFound if the item doesn't exist and
	// models.ErrDuplicateItem on a uniqueness violation.
	UpdateItem(ctx context.Context, item *models.FileSystemItem) error

	// TouchItem bumps updated_at, used after content saves.
	// Returns models.ErrItemNotFound if the item doesn't exist.
	TouchItem(ctx context.Context, id string) error

	// ListDescendants returns every item of the owner whose path starts
	// with pathPrefix + "/", in path order.
	ListDescendants(ctx context.Context, ownerID, pathPrefix string) ([]*models.FileSystemItem, error)

	// MoveSubtree applies a rename/move: it updates the item's own record
	// and rewrites the leading oldPath of every descendant's path to
	// newPath, all inside one transaction.
	MoveSubtree(ctx context.Context, item *models.FileSystemItem, oldPath, newPath string) error

	// DeleteSubtree removes the item and every descendant record inside
	// one transaction. Returns models.ErrItemNotFound if the item itself
	// is already gone.
	DeleteSubtree(ctx context.Context, ownerID, id, path string) error

	// HealthCheck verifies the backing database is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases the database connection.
	Close() error
}
