package handlers

import (
	"context"
	"net/http"

	"research-vectordb/internal/drive"
)

// DriveImporter imports Google Drive files.
type DriveImporter interface {
	Import(ctx context.Context, req drive.ImportRequest) (drive.ImportResult, error)
}

// DriveHandler handles HTTP requests for Google Drive imports.
type DriveHandler struct {
	importer DriveImporter
}

// NewDriveHandler creates a new DriveHandler.
func NewDriveHandler(importer DriveImporter) *DriveHandler {
	return &DriveHandler{importer: importer}
}

// DriveIngestRequest represents the HTTP request payload for a Drive import.
type DriveIngestRequest struct {
	AccessToken    string `json:"access_token"`
	CollectionName string `json:"collection_name,omitempty"`
	MaxFiles       *int   `json:"max_files,omitempty"`
	Query          string `json:"query,omitempty"`
}

// DriveIngestResponse represents the HTTP response payload for a Drive import.
type DriveIngestResponse struct {
	IngestedCount  int    `json:"ingested_count"`
	SkippedCount   int    `json:"skipped_count"`
	CollectionName string `json:"collection_name"`
}

// ServeHTTP handles POST /ingest/drive.
func (h *DriveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req DriveIngestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(ctx, w, err)
		return
	}

	res, err := h.importer.Import(ctx, drive.ImportRequest{
		AccessToken:    req.AccessToken,
		CollectionName: req.CollectionName,
		MaxFiles:       req.MaxFiles,
		Query:          req.Query,
	})
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, DriveIngestResponse{
		IngestedCount:  res.IngestedCount,
		SkippedCount:   res.SkippedCount,
		CollectionName: res.CollectionName,
	})
}
