package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/excalidrive/excalidrive/pkg/api/middleware"
	"github.com/excalidrive/excalidrive/pkg/drive"
	"github.com/excalidrive/excalidrive/pkg/drive/models"
	"github.com/excalidrive/excalidrive/pkg/drive/tree"
)

// ItemHandler serves namespace operations over the drive coordinator.
type ItemHandler struct {
	drive *drive.Coordinator
}

// NewItemHandler creates a new item handler.
func NewItemHandler(d *drive.Coordinator) *ItemHandler {
	return &ItemHandler{drive: d}
}

// CreateItemRequest is the POST /items request body. Content is the
// optional initial scene document for FILE items.
type CreateItemRequest struct {
	Name     string          `json:"name"`
	Type     models.ItemType `json:"type"`
	ParentID *string         `json:"parentId"`
	Content  json.RawMessage `json:"content,omitempty"`
}

// UpdateItemRequest is the PUT /items/{id} request body. Both rename and
// move go through it: Name is the desired leaf name, ParentID the
// destination folder (null for the root).
type UpdateItemRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parentId"`
}

// treeNode is a nested item for shape=tree listings.
type treeNode struct {
	*models.FileSystemItem
	Children []*treeNode `json:"children"`
}

// List handles GET /api/v1/items. The default response is the owner's flat
// record set in creation order; ?shape=tree returns the assembled
// hierarchy, folders before files within each level.
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.OwnerIDFromContext(r.Context())

	items, err := h.drive.List(r.Context(), ownerID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if r.URL.Query().Get("shape") == "tree" {
		WriteJSON(w, http.StatusOK, buildTree(items))
		return
	}

	if items == nil {
		items = []*models.FileSystemItem{}
	}
	WriteJSON(w, http.StatusOK, items)
}

func buildTree(items []*models.FileSystemItem) []*treeNode {
	var convert func(nodes []*tree.Node) []*treeNode
	convert = func(nodes []*tree.Node) []*treeNode {
		out := make([]*treeNode, 0, len(nodes))
		for _, n := range nodes {
			out = append(out, &treeNode{
				FileSystemItem: n.Item,
				Children:       convert(n.Children),
			})
		}
		return out
	}
	return convert(tree.Build(items).Roots())
}

// Create handles POST /api/v1/items.
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.OwnerIDFromContext(r.Context())

	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid JSON body")
		return
	}

	item, err := h.drive.Create(r.Context(), ownerID, drive.CreateRequest{
		Name:     req.Name,
		Type:     req.Type,
		ParentID: req.ParentID,
		Content:  req.Content,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, item)
}

// Get handles GET /api/v1/items/{id}.
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.OwnerIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	item, err := h.drive.Get(r.Context(), ownerID, id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, item)
}

// Update handles PUT /api/v1/items/{id}: rename and/or move.
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.OwnerIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid JSON body")
		return
	}

	item, err := h.drive.Move(r.Context(), ownerID, id, drive.MoveRequest{
		Name:     req.Name,
		ParentID: req.ParentID,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, item)
}

// Delete handles DELETE /api/v1/items/{id}.
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.OwnerIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.drive.Delete(r.Context(), ownerID, id); err != nil {
		writeDomainError(w, r, err)
		return
	}

	WriteNoContent(w)
}
