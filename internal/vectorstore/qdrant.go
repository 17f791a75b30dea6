package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"research-vectordb/internal/contextutil"
	"research-vectordb/internal/llm"
	"research-vectordb/internal/metadata"
)

// Payload keys stored on every point.
const (
	payloadDocID    = "doc_id"
	payloadDocument = "document"
	payloadMetadata = "metadata"
)

// QdrantStore implements Engine using Qdrant.
type QdrantStore struct {
	client     *qdrant.Client
	embedder   llm.Embedder
	vectorSize int
}

// NewQdrantStore creates a new Qdrant-backed engine.
// urlStr should be in the format "http://host:port" (e.g., "http://localhost:6333").
// The gRPC port (typically 6334) will be derived from the HTTP port.
func NewQdrantStore(urlStr, apiKey string, vectorSize int, embedder llm.Embedder) (*QdrantStore, error) {
	cfg, err := qdrantConfig(urlStr, apiKey)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantStore{
		client:     client,
		embedder:   embedder,
		vectorSize: vectorSize,
	}, nil
}

// Close releases the gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// qdrantConfig derives the gRPC client config from the HTTP URL.
func qdrantConfig(urlStr, apiKey string) (*qdrant.Config, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := 6334 // Default gRPC port
	if parsedURL.Port() != "" {
		httpPort, err := strconv.Atoi(parsedURL.Port())
		if err == nil {
			// gRPC port is typically HTTP port + 1
			port = httpPort + 1
		}
	}

	return &qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: parsedURL.Scheme == "https",
	}, nil
}

// pointID maps a document id onto a stable Qdrant UUID.
func pointID(docID string) *qdrant.PointId {
	return qdrant.NewID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(docID)).String())
}

// Heartbeat checks that Qdrant answers.
func (s *QdrantStore) Heartbeat(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check failed: %w", err)
	}
	return nil
}

// CreateCollection creates a cosine collection sized for the embedder.
func (s *QdrantStore) CreateCollection(ctx context.Context, name string) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return ErrCollectionExists
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.vectorSize),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	logger.InfoContext(ctx, "collection created", "collection", name, "vector_size", s.vectorSize)
	return nil
}

// DeleteCollection removes a collection.
func (s *QdrantStore) DeleteCollection(ctx context.Context, name string) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return ErrCollectionNotFound
	}
	if err := s.client.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}

	logger.InfoContext(ctx, "collection deleted", "collection", name)
	return nil
}

// ListCollections returns the names of all collections.
func (s *QdrantStore) ListCollections(ctx context.Context) ([]string, error) {
	names, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return names, nil
}

// CollectionExists checks if a collection exists.
func (s *QdrantStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}
	return exists, nil
}

// Count returns the exact number of points in a collection.
func (s *QdrantStore) Count(ctx context.Context, name string) (int, error) {
	exists, err := s.CollectionExists(ctx, name)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrCollectionNotFound
	}

	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: name,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return int(n), nil
}

// Upsert embeds the batch and writes it in one request that waits for the write to apply.
func (s *QdrantStore) Upsert(ctx context.Context, collection string, docs []Document) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(docs) == 0 {
		return nil
	}

	exists, err := s.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}
	if !exists {
		return ErrCollectionNotFound
	}

	vectors, err := s.embedder.EmbedTexts(ctx, embeddingInputs(docs))
	if err != nil {
		return fmt.Errorf("failed to embed documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("expected %d embeddings, got %d", len(docs), len(vectors))
	}

	points := make([]*qdrant.PointStruct, 0, len(docs))
	for i, d := range docs {
		payload, err := qdrant.TryValueMap(map[string]any{
			payloadDocID:    d.ID,
			payloadDocument: d.Text,
			payloadMetadata: d.Metadata.ToMap(),
		})
		if err != nil {
			return fmt.Errorf("failed to build payload for %s: %w", d.ID, err)
		}
		points = append(points, &qdrant.PointStruct{
			Id:      pointID(d.ID),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: payload,
		})
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to upsert points", "collection", collection, "count", len(docs), "error", err)
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	logger.InfoContext(ctx, "upserted points", "collection", collection, "count", len(docs))
	return nil
}

// Query performs a similarity search with optional filters.
func (s *QdrantStore) Query(ctx context.Context, collection string, q Query) ([]Match, error) {
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

	limit := uint64(q.K)
	queryReq := &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vectors[0]...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         buildFilter(q),
	}

	scoredPoints, err := s.client.Query(ctx, queryReq)
	if err != nil {
		logger.ErrorContext(ctx, "failed to search points", "collection", collection, "k", q.K, "error", err)
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	matches := make([]Match, 0, len(scoredPoints))
	for _, point := range scoredPoints {
		match, err := matchFromPayload(point.GetPayload())
		if err != nil {
			return nil, err
		}
		// Cosine collections score by similarity.
		match.Distance = 1 - point.GetScore()
		matches = append(matches, match)
	}

	logger.DebugContext(ctx, "search completed", "collection", collection, "k", q.K, "results", len(matches))
	return matches, nil
}

// DeleteDocument removes one point by document id.
func (s *QdrantStore) DeleteDocument(ctx context.Context, collection, id string) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}
	if !exists {
		return ErrCollectionNotFound
	}

	found, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: collection,
		Ids:            []*qdrant.PointId{pointID(id)},
	})
	if err != nil {
		return fmt.Errorf("failed to look up point: %w", err)
	}
	if len(found) == 0 {
		return ErrDocumentNotFound
	}

	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(pointID(id)),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to delete point", "collection", collection, "id", id, "error", err)
		return fmt.Errorf("failed to delete point: %w", err)
	}

	logger.InfoContext(ctx, "deleted point", "collection", collection, "id", id)
	return nil
}

// Reset deletes every collection on the server.
func (s *QdrantStore) Reset(ctx context.Context) error {
	names, err := s.ListCollections(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := s.client.DeleteCollection(ctx, name); err != nil {
			return fmt.Errorf("failed to delete collection %s: %w", name, err)
		}
	}
	return nil
}

// buildFilter translates metadata equality and content operators into a Qdrant filter.
// Returns nil when the query has no conditions.
func buildFilter(q Query) *qdrant.Filter {
	var must, mustNot []*qdrant.Condition

	keys := make([]string, 0, len(q.Where))
	for k := range q.Where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		field := payloadMetadata + "." + k
		v := q.Where[k]
		switch v.Kind() {
		case metadata.KindString:
			s, _ := v.Str()
			must = append(must, qdrant.NewMatchKeyword(field, s))
		case metadata.KindBool:
			b, _ := v.Boolean()
			must = append(must, qdrant.NewMatchBool(field, b))
		case metadata.KindNumber:
			n, _ := v.Num()
			must = append(must, qdrant.NewRange(field, &qdrant.Range{Gte: qdrant.PtrOf(n), Lte: qdrant.PtrOf(n)}))
		}
	}

	// Without a full-text index Qdrant treats text match as a substring test.
	if s, ok := q.WhereDocument["$contains"]; ok {
		must = append(must, qdrant.NewMatchText(payloadDocument, s))
	}
	if s, ok := q.WhereDocument["$not_contains"]; ok {
		mustNot = append(mustNot, qdrant.NewMatchText(payloadDocument, s))
	}

	if len(must) == 0 && len(mustNot) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must, MustNot: mustNot}
}

// matchFromPayload rebuilds a Match from a point payload.
func matchFromPayload(payload map[string]*qdrant.Value) (Match, error) {
	fields := convertPayloadToMap(payload)

	id, _ := fields[payloadDocID].(string)
	text, _ := fields[payloadDocument].(string)

	raw, _ := fields[payloadMetadata].(map[string]any)
	md, err := metadata.FromMap(raw)
	if err != nil {
		return Match{}, fmt.Errorf("invalid metadata on point %s: %w", id, err)
	}

	return Match{ID: id, Text: text, Metadata: md}, nil
}

// convertPayloadToMap converts Qdrant payload to map[string]any.
func convertPayloadToMap(payload map[string]*qdrant.Value) map[string]any {
	result := make(map[string]any, len(payload))
	for k, v := range payload {
		if v == nil {
			continue
		}
		result[k] = convertValue(v)
	}
	return result
}

// convertValue converts a Qdrant Value to Go any type.
func convertValue(v *qdrant.Value) any {
	switch val := v.Kind.(type) {
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_ListValue:
		list := make([]any, len(val.ListValue.Values))
		for i, item := range val.ListValue.Values {
			list[i] = convertValue(item)
		}
		return list
	case *qdrant.Value_StructValue:
		return convertPayloadToMap(val.StructValue.Fields)
	default:
		return nil
	}
}
