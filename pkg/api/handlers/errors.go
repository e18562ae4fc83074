package handlers

import (
	"errors"
	"net/http"

	"github.com/excalidrive/excalidrive/internal/logger"
	"github.com/excalidrive/excalidrive/pkg/drive/models"
)

// writeDomainError maps coordinator errors onto problem responses.
//
// Storage errors stay opaque: the client sees only which operation failed,
// the underlying backend error goes to the log.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrItemNotFound):
		NotFound(w, "item not found")
	case errors.Is(err, models.ErrInvalidParent):
		BadRequest(w, "parent folder is missing or not a folder")
	case errors.Is(err, models.ErrInvalidName):
		BadRequest(w, "item name is empty or invalid")
	case errors.Is(err, models.ErrInvalidType):
		BadRequest(w, "item type must be FILE or FOLDER")
	case errors.Is(err, models.ErrCycleRejected):
		BadRequest(w, "cannot move a folder into its own subtree")
	case errors.Is(err, models.ErrNotFile):
		BadRequest(w, "item is not a file")
	case errors.Is(err, models.ErrDuplicateName), errors.Is(err, models.ErrDuplicateItem):
		Conflict(w, "an item with this name already exists in this location")
	case models.IsStorageError(err):
		InternalServerError(w, err.Error())
	default:
		logger.Error("unhandled error in API handler",
			logger.KeyMethod, r.Method,
			logger.KeyPath, r.URL.Path,
			logger.KeyError, err)
		InternalServerError(w, "internal error")
	}
}
