package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/excalidrive/excalidrive/pkg/api/middleware"
	"github.com/excalidrive/excalidrive/pkg/drive"
)

// maxContentSize caps scene uploads. Drawings are JSON documents; embedded
// images arrive base64-encoded inside the scene, so the cap is generous.
const maxContentSize = 32 << 20 // 32 MiB

// ContentHandler serves document content over the drive coordinator.
type ContentHandler struct {
	drive *drive.Coordinator
}

// NewContentHandler creates a new content handler.
func NewContentHandler(d *drive.Coordinator) *ContentHandler {
	return &ContentHandler{drive: d}
}

// Get handles GET /api/v1/items/{id}/content. Files whose blob is missing
// yield the default empty scene, never an error.
func (h *ContentHandler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.OwnerIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	data, err := h.drive.ReadContent(r.Context(), ownerID, id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Put handles PUT /api/v1/items/{id}/content. The body is stored verbatim
// as the new scene.
func (h *ContentHandler) Put(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.OwnerIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	body := http.MaxBytesReader(w, r.Body, maxContentSize)
	data, err := io.ReadAll(body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			WriteProblem(w, http.StatusRequestEntityTooLarge, "Payload Too Large", "scene content exceeds the size limit")
			return
		}
		BadRequest(w, "failed to read request body")
		return
	}

	if err := h.drive.SaveContent(r.Context(), ownerID, id, data); err != nil {
		writeDomainError(w, r, err)
		return
	}

	WriteNoContent(w)
}
