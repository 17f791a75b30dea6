package handlers

import (
	"net/http"

	"research-vectordb/internal/service"
)

// ResetHandler wipes every collection. Destructive; meant for development and tests.
type ResetHandler struct {
	collections service.CollectionService
}

// NewResetHandler creates a new ResetHandler.
func NewResetHandler(collections service.CollectionService) *ResetHandler {
	return &ResetHandler{collections: collections}
}

// ServeHTTP handles POST /reset.
func (h *ResetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.collections.Reset(ctx); err != nil {
		handleServiceError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, MessageResponse{Message: "Database reset successfully"})
}
