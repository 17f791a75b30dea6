package handlers

import (
	"context"
	"net/http"

	"research-vectordb/internal/contextutil"
	"research-vectordb/internal/indexer"
)

// Ingester writes a batch of documents.
// This interface is defined from the handler's perspective (consumer-first).
type Ingester interface {
	Ingest(ctx context.Context, req indexer.Request) (indexer.Result, error)
}

// IngestHandler handles HTTP requests for document ingestion.
type IngestHandler struct {
	ingester Ingester
}

// NewIngestHandler creates a new IngestHandler.
func NewIngestHandler(ingester Ingester) *IngestHandler {
	return &IngestHandler{ingester: ingester}
}

// IngestDocument is one document in an ingest request.
type IngestDocument struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// IngestRequest represents the HTTP request payload for ingestion.
type IngestRequest struct {
	CollectionName string           `json:"collection_name,omitempty"`
	Documents      []IngestDocument `json:"documents"`
}

// IngestResponse represents the HTTP response payload for ingestion.
type IngestResponse struct {
	IngestedCount  int    `json:"ingested_count"`
	CollectionName string `json:"collection_name"`
}

// ServeHTTP handles POST /ingest.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req IngestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(ctx, w, err)
		return
	}

	docs := make([]indexer.Document, len(req.Documents))
	for i, d := range req.Documents {
		docs[i] = indexer.Document{ID: d.ID, Text: d.Text, Metadata: d.Metadata}
	}

	res, err := h.ingester.Ingest(ctx, indexer.Request{
		CollectionName: req.CollectionName,
		Documents:      docs,
	})
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}

	logger.DebugContext(ctx, "ingest request completed", "collection", res.CollectionName, "count", res.IngestedCount)
	writeJSON(ctx, w, http.StatusOK, IngestResponse{
		IngestedCount:  res.IngestedCount,
		CollectionName: res.CollectionName,
	})
}
