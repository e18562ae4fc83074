package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/excalidrive/excalidrive/pkg/drive/models"
	"github.com/excalidrive/excalidrive/pkg/drive/pathutil"
)

// GetItem returns an item by ID.
func (s *GORMStore) GetItem(ctx context.Context, id string) (*models.FileSystemItem, error) {
	var item models.FileSystemItem
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, convertNotFoundError(err, models.ErrItemNotFound)
	}
	return &item, nil
}

// ListItems returns all items of one owner on one provider, oldest first.
func (s *GORMStore) ListItems(ctx context.Context, ownerID, provider string) ([]*models.FileSystemItem, error) {
	var items []*models.FileSystemItem
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND storage_provider = ?", ownerID, provider).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// FindSibling returns the item with the given name under the location,
// excluding excludeID when non-empty.
func (s *GORMStore) FindSibling(ctx context.Context, ownerID string, parentID *string, provider, name, excludeID string) (*models.FileSystemItem, error) {
	q := s.db.WithContext(ctx).
		Where("owner_id = ? AND storage_provider = ? AND name = ?", ownerID, provider, name)

	// parent_id IS NULL for root-level siblings; = ? otherwise
	if parentID == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *parentID)
	}

	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}

	var item models.FileSystemItem
	if err := q.First(&item).Error; err != nil {
		return nil, convertNotFoundError(err, models.ErrItemNotFound)
	}
	return &item, nil
}

// CreateItem persists a new item, generating a UUID when the ID is empty.
func (s *GORMStore) CreateItem(ctx context.Context, item *models.FileSystemItem) (string, error) {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		if isUniqueConstraintError(err) {
			return "", models.ErrDuplicateItem
		}
		return "", err
	}
	return item.ID, nil
}

// UpdateItem updates the mutable fields of an existing item.
// Type, OwnerID and StorageProvider are immutable and never written.
func (s *GORMStore) UpdateItem(ctx context.Context, item *models.FileSystemItem) error {
	item.UpdatedAt = time.Now().UTC()

	result := s.db.WithContext(ctx).
		Model(&models.FileSystemItem{}).
		Where("id = ?", item.ID).
		Select("name", "parent_id", "path", "updated_at").
		Updates(map[string]any{
			"name":       item.Name,
			"parent_id":  item.ParentID,
			"path":       item.Path,
			"updated_at": item.UpdatedAt,
		})

	if result.Error != nil {
		if isUniqueConstraintError(result.Error) {
			return models.ErrDuplicateItem
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrItemNotFound
	}
	return nil
}

// TouchItem bumps updated_at after a content save.
func (s *GORMStore) TouchItem(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).
		Model(&models.FileSystemItem{}).
		Where("id = ?", id).
		Update("updated_at", time.Now().UTC())

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrItemNotFound
	}
	return nil
}

// ListDescendants returns every item whose path starts with pathPrefix + "/",
// ordered by path so parents precede their children.
func (s *GORMStore) ListDescendants(ctx context.Context, ownerID, pathPrefix string) ([]*models.FileSystemItem, error) {
	var items []*models.FileSystemItem
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND path LIKE ? ESCAPE '\\'", ownerID, likePrefix(pathPrefix+"/")).
		Order("path ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// MoveSubtree updates the moved item and rewrites every descendant path
// inside a single transaction, so a crash mid-move cannot leave the subtree
// half-rewritten in this store.
func (s *GORMStore) MoveSubtree(ctx context.Context, item *models.FileSystemItem, oldPath, newPath string) error {
	item.UpdatedAt = time.Now().UTC()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.FileSystemItem{}).
			Where("id = ?", item.ID).
			Updates(map[string]any{
				"name":       item.Name,
				"parent_id":  item.ParentID,
				"path":       item.Path,
				"updated_at": item.UpdatedAt,
			})
		if result.Error != nil {
			if isUniqueConstraintError(result.Error) {
				return models.ErrDuplicateItem
			}
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.ErrItemNotFound
		}

		if item.IsFolder() {
			var descendants []*models.FileSystemItem
			if err := tx.Where("owner_id = ? AND path LIKE ? ESCAPE '\\'", item.OwnerID, likePrefix(oldPath+"/")).
				Find(&descendants).Error; err != nil {
				return err
			}

			for _, child := range descendants {
				rewritten := pathutil.RewritePrefix(oldPath, newPath, child.Path)
				if err := tx.Model(&models.FileSystemItem{}).
					Where("id = ?", child.ID).
					Update("path", rewritten).Error; err != nil {
					return err
				}
			}
		}

		return nil
	})
}

// DeleteSubtree removes the item and all of its descendants in one
// transaction.
func (s *GORMStore) DeleteSubtree(ctx context.Context, ownerID, id, path string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ? AND path LIKE ? ESCAPE '\\'", ownerID, likePrefix(path+"/")).
			Delete(&models.FileSystemItem{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ? AND owner_id = ?", id, ownerID).
			Delete(&models.FileSystemItem{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.ErrItemNotFound
		}
		return nil
	})
}

// likePrefix builds a LIKE pattern matching the literal prefix. The LIKE
// wildcards are escaped so item names containing % or _ cannot widen the
// match.
func likePrefix(prefix string) string {
	replaced := make([]byte, 0, len(prefix)+2)
	for i := 0; i < len(prefix); i++ {
		c := prefix[i]
		if c == '%' || c == '_' || c == '\\' {
			replaced = append(replaced, '\\')
		}
		replaced = append(replaced, c)
	}
	return string(append(replaced, '%'))
}

// Ensure GORMStore implements Store.
var _ Store = (*GORMStore)(nil)
