package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_engine.go -package=mocks research-vectordb/internal/vectorstore Engine

import (
	"context"
	"errors"

	"research-vectordb/internal/metadata"
)

var (
	// ErrCollectionNotFound is returned when a named collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrCollectionExists is returned when creating a collection that already exists.
	ErrCollectionExists = errors.New("collection already exists")
	// ErrDocumentNotFound is returned when a document id is absent from its collection.
	ErrDocumentNotFound = errors.New("document not found")
)

// Document is a unit of ingested text.
type Document struct {
	ID       string
	Text     string
	Metadata metadata.Metadata
	// EmbeddingInput, when set, is embedded instead of Text.
	EmbeddingInput string
}

// Query describes a similarity search.
type Query struct {
	Text  string
	K     int
	Where metadata.Filter
	// WhereDocument holds content operators ($contains, $not_contains).
	WhereDocument map[string]string
}

// Match is a single query result.
type Match struct {
	ID       string
	Text     string
	Metadata metadata.Metadata
	// Distance is the cosine distance (1 - cosine similarity); lower is closer.
	Distance float32
}

// Engine is the embedding and nearest-neighbour backend.
// Implementations compute embeddings themselves and are safe for concurrent use.
type Engine interface {
	// Heartbeat reports whether the backend is reachable.
	Heartbeat(ctx context.Context) error

	// CreateCollection creates an empty collection or returns ErrCollectionExists.
	CreateCollection(ctx context.Context, name string) error

	// DeleteCollection removes a collection and its documents or returns ErrCollectionNotFound.
	DeleteCollection(ctx context.Context, name string) error

	// ListCollections returns collection names in no particular order.
	ListCollections(ctx context.Context) ([]string, error)

	// CollectionExists reports whether the collection exists.
	CollectionExists(ctx context.Context, name string) (bool, error)

	// Count returns the number of documents in a collection.
	Count(ctx context.Context, name string) (int, error)

	// Upsert embeds and writes documents, replacing documents with the same id.
	// No document is written when embedding fails.
	Upsert(ctx context.Context, collection string, docs []Document) error

	// Query returns up to q.K matches ordered by ascending distance.
	Query(ctx context.Context, collection string, q Query) ([]Match, error)

	// DeleteDocument removes one document or returns ErrDocumentNotFound.
	DeleteDocument(ctx context.Context, collection, id string) error

	// Reset removes every collection.
	Reset(ctx context.Context) error
}

// embeddingInputs returns the text to embed for each document.
func embeddingInputs(docs []Document) []string {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
		if d.EmbeddingInput != "" {
			texts[i] = d.EmbeddingInput
		}
	}
	return texts
}
