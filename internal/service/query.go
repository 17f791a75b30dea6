package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_query_service.go -package=mocks research-vectordb/internal/service QueryService

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"research-vectordb/internal/contextutil"
	"research-vectordb/internal/metadata"
	"research-vectordb/internal/vectorstore"
)

// DefaultNResults is used when a query omits n_results.
const DefaultNResults = 5

// Content filter operators accepted in where_document.
const (
	OpContains    = "$contains"
	OpNotContains = "$not_contains"
)

// QueryRequest represents a similarity query in the domain layer.
type QueryRequest struct {
	QueryText string
	// NResults is nil when the caller did not set it.
	NResults       *int
	CollectionName string
	Where          map[string]any
	WhereDocument  map[string]string
}

// QueryResponse holds matches ordered by ascending distance.
type QueryResponse struct {
	CollectionName string
	Results        []vectorstore.Match
}

// QueryService runs similarity queries.
type QueryService interface {
	Query(ctx context.Context, req QueryRequest) (QueryResponse, error)
}

// queryService implements QueryService.
type queryService struct {
	engine            vectorstore.Engine
	defaultCollection string
	maxResults        int
}

// NewQueryService creates a new QueryService. maxResults bounds n_results.
func NewQueryService(engine vectorstore.Engine, defaultCollection string, maxResults int) QueryService {
	return &queryService{
		engine:            engine,
		defaultCollection: defaultCollection,
		maxResults:        maxResults,
	}
}

// Query validates the request and returns the engine's matches in engine order.
func (s *queryService) Query(ctx context.Context, req QueryRequest) (QueryResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(req.QueryText) == "" {
		logger.WarnContext(ctx, "empty query text")
		return QueryResponse{}, &ValidationError{Field: "query_text", Message: "cannot be empty"}
	}

	n := DefaultNResults
	if req.NResults != nil {
		n = *req.NResults
	}
	if n <= 0 || n > s.maxResults {
		return QueryResponse{}, &ValidationError{
			Field:   "n_results",
			Message: fmt.Sprintf("must be between 1 and %d", s.maxResults),
		}
	}

	collection := ResolveCollection(req.CollectionName, s.defaultCollection)
	if err := ValidateCollectionName("collection_name", collection); err != nil {
		return QueryResponse{}, err
	}

	where, err := metadata.FilterFromMap(req.Where)
	if err != nil {
		var keyErr *metadata.KeyError
		if errors.As(err, &keyErr) {
			return QueryResponse{}, &ValidationError{Field: "where." + keyErr.Key, Message: keyErr.Err.Error()}
		}
		return QueryResponse{}, &ValidationError{Field: "where", Message: err.Error()}
	}

	if err := validateWhereDocument(req.WhereDocument); err != nil {
		return QueryResponse{}, err
	}

	matches, err := s.engine.Query(ctx, collection, vectorstore.Query{
		Text:          req.QueryText,
		K:             n,
		Where:         where,
		WhereDocument: req.WhereDocument,
	})
	if err != nil {
		return QueryResponse{}, EngineError(err, collection)
	}
	if matches == nil {
		matches = []vectorstore.Match{}
	}

	logger.InfoContext(ctx, "query processed", "collection", collection, "n_results", n, "results", len(matches))
	return QueryResponse{CollectionName: collection, Results: matches}, nil
}

func validateWhereDocument(wd map[string]string) error {
	for op, value := range wd {
		switch op {
		case OpContains, OpNotContains:
		default:
			return &ValidationError{
				Field:   "where_document." + op,
				Message: "unsupported operator, expected $contains or $not_contains",
			}
		}
		if value == "" {
			return &ValidationError{Field: "where_document." + op, Message: "cannot be empty"}
		}
	}
	return nil
}
