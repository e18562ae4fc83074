package models

import "errors"

// Common errors for namespace operations. The API layer maps these to HTTP
// statuses; everything else compares with errors.Is.
var (
	// ErrItemNotFound is returned when an item does not exist or is not
	// owned by the caller. The two cases are deliberately indistinguishable.
	ErrItemNotFound = errors.New("item not found")

	// ErrInvalidParent is returned when the requested parent is missing,
	// owned by someone else, or not a folder.
	ErrInvalidParent = errors.New("invalid parent")

	// ErrDuplicateName is returned when a sibling with the same name already
	// exists in the destination location.
	ErrDuplicateName = errors.New("an item with this name already exists in this location")

	// ErrCycleRejected is returned when a folder would be moved into itself
	// or one of its descendants.
	ErrCycleRejected = errors.New("cannot move a folder into its own subtree")

	// ErrDuplicateItem is the store-level uniqueness violation. The
	// coordinator pre-checks siblings, so hitting this means two requests
	// raced; callers treat it like ErrDuplicateName.
	ErrDuplicateItem = errors.New("item already exists")

	// ErrNotFile is returned by content operations on FOLDER items.
	ErrNotFile = errors.New("item is not a file")

	// ErrInvalidName is returned when an item name is empty or contains a
	// path separator.
	ErrInvalidName = errors.New("invalid item name")

	// ErrInvalidType is returned when an item type is neither FILE nor FOLDER.
	ErrInvalidType = errors.New("invalid item type")
)

// StorageError wraps a blob backend failure. The message deliberately names
// only the operation, never the storage key or backend detail; the cause is
// preserved for logging via Unwrap.
type StorageError struct {
	// Op is the storage operation that failed: save, rename, delete, read.
	Op string

	// Err is the underlying backend error.
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return "storage backend failure during " + e.Op
}

// Unwrap returns the underlying backend error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps a backend error for the given operation.
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

// IsStorageError reports whether err is (or wraps) a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
