package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"research-vectordb/internal/service"
)

// CollectionsHandler serves collection lifecycle routes.
type CollectionsHandler struct {
	collections service.CollectionService
}

// NewCollectionsHandler creates a new CollectionsHandler.
func NewCollectionsHandler(collections service.CollectionService) *CollectionsHandler {
	return &CollectionsHandler{collections: collections}
}

// CollectionResponse describes a newly created collection.
type CollectionResponse struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// CountResponse reports the document count of a collection.
type CountResponse struct {
	CollectionName string `json:"collection_name"`
	Count          int    `json:"count"`
}

// Create handles POST /collections/{name}.
func (h *CollectionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	info, err := h.collections.Create(ctx, chi.URLParam(r, "name"))
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusCreated, CollectionResponse{Name: info.Name, Count: info.Count})
}

// List handles GET /collections. The body is a JSON array of names.
func (h *CollectionsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	names, err := h.collections.List(ctx)
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	if names == nil {
		names = []string{}
	}

	writeJSON(ctx, w, http.StatusOK, names)
}

// Delete handles DELETE /collections/{name}.
func (h *CollectionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")

	if err := h.collections.Delete(ctx, name); err != nil {
		handleServiceError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, MessageResponse{Message: fmt.Sprintf("Collection '%s' deleted", name)})
}

// Count handles GET /collections/{name}/count.
func (h *CollectionsHandler) Count(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	info, err := h.collections.Count(ctx, chi.URLParam(r, "name"))
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, CountResponse{CollectionName: info.Name, Count: info.Count})
}
