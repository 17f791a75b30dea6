package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/philippgille/chromem-go"

	"research-vectordb/internal/contextutil"
	"research-vectordb/internal/llm"
	"research-vectordb/internal/metadata"
)

// MemoryStore implements Engine on an in-process chromem-go database.
// Contents are lost when the process exits.
type MemoryStore struct {
	// mu orders collection lifecycle against writes; chromem guards its own maps.
	mu       sync.RWMutex
	db       *chromem.DB
	embedder llm.Embedder
}

// NewMemoryStore creates an empty in-memory store that embeds with embedder.
func NewMemoryStore(embedder llm.Embedder) *MemoryStore {
	return &MemoryStore{
		db:       chromem.NewDB(),
		embedder: embedder,
	}
}

// Heartbeat always succeeds for the in-process store.
func (s *MemoryStore) Heartbeat(ctx context.Context) error {
	return ctx.Err()
}

// CreateCollection creates an empty collection.
func (s *MemoryStore) CreateCollection(ctx context.Context, name string) error {
	logger := contextutil.LoggerFromContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db.GetCollection(name, nil) != nil {
		return ErrCollectionExists
	}
	if _, err := s.db.CreateCollection(name, nil, s.embedFunc()); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	logger.InfoContext(ctx, "collection created", "collection", name)
	return nil
}

// DeleteCollection removes a collection and its documents.
func (s *MemoryStore) DeleteCollection(ctx context.Context, name string) error {
	logger := contextutil.LoggerFromContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db.GetCollection(name, nil) == nil {
		return ErrCollectionNotFound
	}
	if err := s.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}

	logger.InfoContext(ctx, "collection deleted", "collection", name)
	return nil
}

// ListCollections returns the names of all collections.
func (s *MemoryStore) ListCollections(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	collections := s.db.ListCollections()
	names := make([]string, 0, len(collections))
	for name := range collections {
		names = append(names, name)
	}
	return names, nil
}

// CollectionExists reports whether the collection exists.
func (s *MemoryStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.db.GetCollection(name, nil) != nil, nil
}

// Count returns the number of documents in a collection.
func (s *MemoryStore) Count(_ context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll := s.db.GetCollection(name, nil)
	if coll == nil {
		return 0, ErrCollectionNotFound
	}
	return coll.Count(), nil
}

// Upsert embeds all documents first and then writes them under the write lock.
func (s *MemoryStore) Upsert(ctx context.Context, collection string, docs []Document) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(docs) == 0 {
		return nil
	}

	vectors, err := s.embedder.EmbedTexts(ctx, embeddingInputs(docs))
	if err != nil {
		return fmt.Errorf("failed to embed documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("expected %d embeddings, got %d", len(docs), len(vectors))
	}

	chromemDocs := make([]chromem.Document, len(docs))
	for i, d := range docs {
		chromemDocs[i] = chromem.Document{
			ID:        d.ID,
			Metadata:  d.Metadata.Encode(),
			Embedding: vectors[i],
			Content:   d.Text,
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.db.GetCollection(collection, nil)
	if coll == nil {
		return ErrCollectionNotFound
	}
	// Past this point the batch is written in full. chromem workers stop
	// silently on a done context, which would leave part of the batch behind.
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := coll.AddDocuments(context.WithoutCancel(ctx), chromemDocs, runtime.NumCPU()); err != nil {
		logger.ErrorContext(ctx, "failed to upsert documents", "collection", collection, "count", len(docs), "error", err)
		return fmt.Errorf("failed to upsert documents: %w", err)
	}

	logger.InfoContext(ctx, "upserted documents", "collection", collection, "count", len(docs))
	return nil
}

// Query embeds q.Text and returns the nearest documents that pass the filters.
func (s *MemoryStore) Query(ctx context.Context, collection string, q Query) ([]Match, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if q.K <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	exists, err := s.CollectionExists(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrCollectionNotFound
	}

	vectors, err := s.embedder.EmbedTexts(ctx, []string{q.Text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vectors))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	coll := s.db.GetCollection(collection, nil)
	if coll == nil {
		return nil, ErrCollectionNotFound
	}

	// chromem rejects n larger than the collection.
	n := min(q.K, coll.Count())
	if n == 0 {
		return []Match{}, nil
	}

	results, err := coll.QueryEmbedding(ctx, vectors[0], n, q.Where.Encode(), q.WhereDocument)
	if err != nil {
		logger.ErrorContext(ctx, "failed to query documents", "collection", collection, "k", q.K, "error", err)
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		md, err := metadata.DecodeMap(r.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to decode metadata of %s: %w", r.ID, err)
		}
		matches = append(matches, Match{
			ID:       r.ID,
			Text:     r.Content,
			Metadata: md,
			Distance: 1 - r.Similarity,
		})
	}

	logger.DebugContext(ctx, "query completed", "collection", collection, "k", q.K, "results", len(matches))
	return matches, nil
}

// DeleteDocument removes one document by id.
func (s *MemoryStore) DeleteDocument(ctx context.Context, collection, id string) error {
	logger := contextutil.LoggerFromContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.db.GetCollection(collection, nil)
	if coll == nil {
		return ErrCollectionNotFound
	}
	if _, err := coll.GetByID(ctx, id); err != nil {
		return ErrDocumentNotFound
	}
	if err := coll.Delete(ctx, nil, nil, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	logger.InfoContext(ctx, "document deleted", "collection", collection, "id", id)
	return nil
}

// Reset removes every collection.
func (s *MemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Reset(); err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}
	return nil
}

// embedFunc adapts the embedder for chromem, which only calls it when a
// document or query arrives without a precomputed vector.
func (s *MemoryStore) embedFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vectors, err := s.embedder.EmbedTexts(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vectors) != 1 {
			return nil, errors.New("embedder returned no vector")
		}
		return vectors[0], nil
	}
}
