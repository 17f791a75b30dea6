package handlers

import (
	"net/http"

	"research-vectordb/internal/metadata"
	"research-vectordb/internal/service"
)

// QueryHandler handles HTTP requests for similarity queries.
type QueryHandler struct {
	queries service.QueryService
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(queries service.QueryService) *QueryHandler {
	return &QueryHandler{queries: queries}
}

// QueryRequest represents the HTTP request payload for a query.
type QueryRequest struct {
	QueryText      string            `json:"query_text"`
	NResults       *int              `json:"n_results,omitempty"`
	CollectionName string            `json:"collection_name,omitempty"`
	Where          map[string]any    `json:"where,omitempty"`
	WhereDocument  map[string]string `json:"where_document,omitempty"`
}

// QueryMatch is one result in a query response.
type QueryMatch struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata metadata.Metadata `json:"metadata"`
	Distance float32           `json:"distance"`
}

// QueryResponse represents the HTTP response payload for a query.
type QueryResponse struct {
	Results []QueryMatch `json:"results"`
	Count   int          `json:"count"`
}

// ServeHTTP handles POST /query.
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req QueryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(ctx, w, err)
		return
	}

	resp, err := h.queries.Query(ctx, service.QueryRequest{
		QueryText:      req.QueryText,
		NResults:       req.NResults,
		CollectionName: req.CollectionName,
		Where:          req.Where,
		WhereDocument:  req.WhereDocument,
	})
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}

	results := make([]QueryMatch, len(resp.Results))
	for i, m := range resp.Results {
		md := m.Metadata
		if md == nil {
			md = metadata.Metadata{}
		}
		results[i] = QueryMatch{ID: m.ID, Text: m.Text, Metadata: md, Distance: m.Distance}
	}

	writeJSON(ctx, w, http.StatusOK, QueryResponse{Results: results, Count: len(results)})
}
