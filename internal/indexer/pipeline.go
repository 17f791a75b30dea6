package indexer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"research-vectordb/internal/contextutil"
	"research-vectordb/internal/metadata"
	"research-vectordb/internal/service"
	"research-vectordb/internal/vectorstore"
)

// DefaultMaxBatchSize bounds the number of documents in one ingest call.
const DefaultMaxBatchSize = 1000

// Document is a document as submitted by a client.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]any
}

// Request is one ingest call.
type Request struct {
	CollectionName string
	Documents      []Document
}

// Result reports what an ingest call wrote.
type Result struct {
	IngestedCount  int
	CollectionName string
}

// Pipeline validates documents and writes them to the engine in one batch.
type Pipeline struct {
	engine            vectorstore.Engine
	markdown          *MarkdownExtractor
	defaultCollection string
	maxBatchSize      int
}

// NewPipeline creates a new ingestion pipeline. A non-positive maxBatchSize uses DefaultMaxBatchSize.
func NewPipeline(engine vectorstore.Engine, defaultCollection string, maxBatchSize int) *Pipeline {
	if maxBatchSize <= 0 {
		maxBatchSize = DefaultMaxBatchSize
	}
	return &Pipeline{
		engine:            engine,
		markdown:          NewMarkdownExtractor(),
		defaultCollection: defaultCollection,
		maxBatchSize:      maxBatchSize,
	}
}

// Ingest validates the whole batch, creates the collection if needed and
// upserts every document in a single engine call. Nothing is written when
// any document is invalid.
func (p *Pipeline) Ingest(ctx context.Context, req Request) (Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	collection := service.ResolveCollection(req.CollectionName, p.defaultCollection)
	if err := service.ValidateCollectionName("collection_name", collection); err != nil {
		return Result{}, err
	}

	if len(req.Documents) == 0 {
		return Result{}, &service.ValidationError{Field: "documents", Message: "must contain at least one document"}
	}
	if len(req.Documents) > p.maxBatchSize {
		return Result{}, &service.ValidationError{
			Field:   "documents",
			Message: fmt.Sprintf("batch of %d exceeds the limit of %d documents", len(req.Documents), p.maxBatchSize),
		}
	}

	docs, err := p.prepare(req.Documents)
	if err != nil {
		logger.WarnContext(ctx, "rejected ingest batch", "collection", collection, "error", err)
		return Result{}, err
	}

	if err := p.ensureCollection(ctx, collection); err != nil {
		return Result{}, err
	}

	if err := p.engine.Upsert(ctx, collection, docs); err != nil {
		logger.ErrorContext(ctx, "failed to ingest documents", "collection", collection, "count", len(docs), "error", err)
		return Result{}, service.EngineError(err, collection)
	}

	logger.InfoContext(ctx, "ingested documents", "collection", collection, "count", len(docs), "submitted", len(req.Documents))
	return Result{IngestedCount: len(docs), CollectionName: collection}, nil
}

// prepare validates documents and collapses duplicate ids. The last
// occurrence of an id wins and takes the position of the first.
func (p *Pipeline) prepare(in []Document) ([]vectorstore.Document, error) {
	docs := make([]vectorstore.Document, 0, len(in))
	position := make(map[string]int, len(in))

	for i, d := range in {
		if d.ID == "" {
			return nil, &service.DocumentError{Index: i, Field: "id", Message: "cannot be empty"}
		}
		if strings.TrimSpace(d.Text) == "" {
			return nil, &service.DocumentError{Index: i, Field: "text", Message: "cannot be empty"}
		}
		md, err := metadata.FromMap(d.Metadata)
		if err != nil {
			var keyErr *metadata.KeyError
			if errors.As(err, &keyErr) {
				return nil, &service.DocumentError{Index: i, Field: "metadata." + keyErr.Key, Message: keyErr.Err.Error()}
			}
			return nil, &service.DocumentError{Index: i, Field: "metadata", Message: err.Error()}
		}

		doc := vectorstore.Document{ID: d.ID, Text: d.Text, Metadata: md}
		if IsMarkdown(md) {
			doc.EmbeddingInput = p.markdown.PlainText(d.Text)
		}

		if pos, seen := position[d.ID]; seen {
			docs[pos] = doc
			continue
		}
		position[d.ID] = len(docs)
		docs = append(docs, doc)
	}
	return docs, nil
}

// ensureCollection creates the collection on first use. Losing a creation
// race to a concurrent request is fine.
func (p *Pipeline) ensureCollection(ctx context.Context, collection string) error {
	exists, err := p.engine.CollectionExists(ctx, collection)
	if err != nil {
		return service.EngineError(err, collection)
	}
	if exists {
		return nil
	}
	logger := contextutil.LoggerFromContext(ctx)
	err = p.engine.CreateCollection(ctx, collection)
	switch {
	case err == nil:
		logger.InfoContext(ctx, "created collection on ingest", "collection", collection)
	case errors.Is(err, vectorstore.ErrCollectionExists):
		logger.DebugContext(ctx, "collection created concurrently", "collection", collection)
	default:
		return service.EngineError(err, collection)
	}
	return nil
}
