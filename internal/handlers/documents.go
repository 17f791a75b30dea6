package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"research-vectordb/internal/service"
)

// DocumentHandler handles HTTP requests for single documents.
type DocumentHandler struct {
	collections service.CollectionService
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(collections service.CollectionService) *DocumentHandler {
	return &DocumentHandler{collections: collections}
}

// ServeHTTP handles DELETE /documents/{id}?collection_name=...
func (h *DocumentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	collection, err := h.collections.DeleteDocument(ctx, r.URL.Query().Get("collection_name"), id)
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Document '%s' deleted from collection '%s'", id, collection),
	})
}
