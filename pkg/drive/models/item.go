// Package models defines the persistent entities of the drive namespace.
package models

import "time"

// ItemType distinguishes documents from folders. Immutable after creation.
type ItemType string

const (
	// ItemTypeFile is a drawing document backed by exactly one blob.
	ItemTypeFile ItemType = "FILE"
	// ItemTypeFolder is a container; folders never own a blob themselves.
	ItemTypeFolder ItemType = "FOLDER"
)

// IsValid checks if the type is a valid ItemType.
func (t ItemType) IsValid() bool {
	return t == ItemTypeFile || t == ItemTypeFolder
}

// FileSystemItem is a node in an owner's namespace tree.
//
// Path is the materialized full path from the owner root, always starting
// with "/" and ending with Name. It is denormalized onto every record so
// subtree queries are a single path-prefix scan instead of a recursive walk.
//
// The composite unique index on (owner_id, parent_id, storage_provider, name)
// is a defense-in-depth backstop; the coordinator pre-checks sibling
// uniqueness before every create and move. SQL NULL semantics exempt
// root-level items (parent_id NULL) from the index, so for those the
// pre-check is the only enforcement.
type FileSystemItem struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	Name            string    `gorm:"not null;size:255;uniqueIndex:idx_items_sibling" json:"name"`
	Type            ItemType  `gorm:"not null;size:10" json:"type"`
	ParentID        *string   `gorm:"size:36;index;uniqueIndex:idx_items_sibling" json:"parentId"`
	OwnerID         string    `gorm:"not null;size:36;index:idx_items_owner_path;uniqueIndex:idx_items_sibling" json:"ownerId"`
	Path            string    `gorm:"not null;size:4096;index:idx_items_owner_path" json:"path"`
	StorageProvider string    `gorm:"not null;size:50;uniqueIndex:idx_items_sibling" json:"storageProvider"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName returns the table name for FileSystemItem.
func (FileSystemItem) TableName() string {
	return "file_system_items"
}

// IsFile reports whether the item is a FILE.
func (i *FileSystemItem) IsFile() bool {
	return i.Type == ItemTypeFile
}

// IsFolder reports whether the item is a FOLDER.
func (i *FileSystemItem) IsFolder() bool {
	return i.Type == ItemTypeFolder
}

// StorageKey returns the blob key for this item: ownerID ++ path.
// The convention must not change; existing blobs are addressed by it.
func (i *FileSystemItem) StorageKey() string {
	return i.OwnerID + i.Path
}

// AllModels returns all models for database migration.
func AllModels() []any {
	return []any{
		&FileSystemItem{},
	}
}
