package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_collection_service.go -package=mocks research-vectordb/internal/service CollectionService

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"research-vectordb/internal/contextutil"
	"research-vectordb/internal/vectorstore"
)

// MaxCollectionNameLength bounds collection names in runes.
const MaxCollectionNameLength = 128

// CollectionInfo describes a collection and its size.
type CollectionInfo struct {
	Name  string
	Count int
}

// HealthStatus summarises engine reachability.
type HealthStatus struct {
	CollectionsCount int
}

// CollectionService manages collections and whole-collection operations.
type CollectionService interface {
	// Create creates an empty collection.
	Create(ctx context.Context, name string) (CollectionInfo, error)
	// List returns collection names sorted alphabetically.
	List(ctx context.Context) ([]string, error)
	// Delete removes a collection and its documents.
	Delete(ctx context.Context, name string) error
	// Count returns the number of documents in a collection.
	Count(ctx context.Context, name string) (CollectionInfo, error)
	// DeleteDocument removes one document; an empty collection name means the default collection.
	DeleteDocument(ctx context.Context, collection, id string) (string, error)
	// Reset removes every collection.
	Reset(ctx context.Context) error
	// Health checks the engine and counts collections.
	Health(ctx context.Context) (HealthStatus, error)
}

// collectionService implements CollectionService.
type collectionService struct {
	engine            vectorstore.Engine
	defaultCollection string
	allowReset        bool
}

// NewCollectionService creates a new CollectionService.
func NewCollectionService(engine vectorstore.Engine, defaultCollection string, allowReset bool) CollectionService {
	return &collectionService{
		engine:            engine,
		defaultCollection: defaultCollection,
		allowReset:        allowReset,
	}
}

// ValidateCollectionName checks the naming rules shared by every endpoint.
func ValidateCollectionName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: field, Message: "cannot be empty"}
	}
	if utf8.RuneCountInString(name) > MaxCollectionNameLength {
		return &ValidationError{Field: field, Message: "must be at most 128 characters"}
	}
	return nil
}

// ResolveCollection returns name, or def when name is empty.
func ResolveCollection(name, def string) string {
	if name == "" {
		return def
	}
	return name
}

func (s *collectionService) Create(ctx context.Context, name string) (CollectionInfo, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := ValidateCollectionName("name", name); err != nil {
		return CollectionInfo{}, err
	}
	if err := s.engine.CreateCollection(ctx, name); err != nil {
		return CollectionInfo{}, EngineError(err, name)
	}

	logger.InfoContext(ctx, "created collection", "collection", name)
	return CollectionInfo{Name: name, Count: 0}, nil
}

func (s *collectionService) List(ctx context.Context) ([]string, error) {
	names, err := s.engine.ListCollections(ctx)
	if err != nil {
		return nil, EngineError(err, "")
	}
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)
	return sorted, nil
}

func (s *collectionService) Delete(ctx context.Context, name string) error {
	logger := contextutil.LoggerFromContext(ctx)

	if err := ValidateCollectionName("name", name); err != nil {
		return err
	}
	if err := s.engine.DeleteCollection(ctx, name); err != nil {
		return EngineError(err, name)
	}

	logger.InfoContext(ctx, "deleted collection", "collection", name)
	return nil
}

func (s *collectionService) Count(ctx context.Context, name string) (CollectionInfo, error) {
	if err := ValidateCollectionName("name", name); err != nil {
		return CollectionInfo{}, err
	}
	n, err := s.engine.Count(ctx, name)
	if err != nil {
		return CollectionInfo{}, EngineError(err, name)
	}
	return CollectionInfo{Name: name, Count: n}, nil
}

func (s *collectionService) DeleteDocument(ctx context.Context, collection, id string) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	collection = ResolveCollection(collection, s.defaultCollection)
	if err := ValidateCollectionName("collection_name", collection); err != nil {
		return "", err
	}
	if id == "" {
		return "", &ValidationError{Field: "id", Message: "cannot be empty"}
	}

	if err := s.engine.DeleteDocument(ctx, collection, id); err != nil {
		return "", EngineError(err, collection)
	}

	logger.InfoContext(ctx, "deleted document", "collection", collection, "id", id)
	return collection, nil
}

func (s *collectionService) Reset(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)

	if !s.allowReset {
		logger.WarnContext(ctx, "reset rejected, disabled by configuration")
		return fmt.Errorf("%w: reset is disabled on this server", ErrForbidden)
	}

	logger.WarnContext(ctx, "resetting vector database, all collections will be removed")
	if err := s.engine.Reset(ctx); err != nil {
		return EngineError(err, "")
	}
	return nil
}

func (s *collectionService) Health(ctx context.Context) (HealthStatus, error) {
	if err := s.engine.Heartbeat(ctx); err != nil {
		return HealthStatus{}, EngineError(err, "")
	}
	names, err := s.engine.ListCollections(ctx)
	if err != nil {
		return HealthStatus{}, EngineError(err, "")
	}
	return HealthStatus{CollectionsCount: len(names)}, nil
}
