package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"research-vectordb/internal/metadata"
)

// conceptEmbedder places texts on three axes: animals, rockets, everything else.
type conceptEmbedder struct {
	fail bool
}

func (e *conceptEmbedder) ModelName() string { return "concept" }

func (e *conceptEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if e.fail {
		return nil, errors.New("embedder down")
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := []float32{0, 0, 0.1}
		for _, w := range strings.Fields(strings.ToLower(text)) {
			switch strings.Trim(w, ".,!?") {
			case "cat", "cats", "feline", "animal", "animals", "mammals":
				v[0]++
			case "rocket", "rockets", "fuel", "space":
				v[1]++
			}
		}
		out[i] = v
	}
	return out, nil
}

func newTestMemoryStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore(&conceptEmbedder{})
	if err := s.CreateCollection(context.Background(), "docs"); err != nil {
		t.Fatalf("CreateCollection() error = %v", err)
	}
	return s
}

func TestMemoryStore_CollectionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestMemoryStore(t)

	if err := s.CreateCollection(ctx, "docs"); !errors.Is(err, ErrCollectionExists) {
		t.Errorf("CreateCollection() duplicate error = %v, want ErrCollectionExists", err)
	}

	names, err := s.ListCollections(ctx)
	if err != nil || len(names) != 1 || names[0] != "docs" {
		t.Errorf("ListCollections() = %v, %v, want [docs]", names, err)
	}

	if _, err := s.Count(ctx, "missing"); !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("Count() error = %v, want ErrCollectionNotFound", err)
	}
	if err := s.DeleteCollection(ctx, "missing"); !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("DeleteCollection() error = %v, want ErrCollectionNotFound", err)
	}

	if err := s.DeleteCollection(ctx, "docs"); err != nil {
		t.Fatalf("DeleteCollection() error = %v", err)
	}
	if exists, _ := s.CollectionExists(ctx, "docs"); exists {
		t.Error("CollectionExists() = true after delete")
	}
}

func TestMemoryStore_UpsertAndQuery(t *testing.T) {
	ctx := context.Background()
	s := newTestMemoryStore(t)

	docs := []Document{
		{ID: "a", Text: "cats are mammals", Metadata: metadata.Metadata{"kind": metadata.String("animal")}},
		{ID: "b", Text: "rockets use liquid fuel", Metadata: metadata.Metadata{"kind": metadata.String("space")}},
	}
	if err := s.Upsert(ctx, "docs", docs); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	count, err := s.Count(ctx, "docs")
	if err != nil || count != 2 {
		t.Fatalf("Count() = %d, %v, want 2", count, err)
	}

	matches, err := s.Query(ctx, "docs", Query{Text: "feline animal", K: 5})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("Query() returned %d matches, want 2 (clamped to count)", len(matches))
	}
	if matches[0].ID != "a" {
		t.Errorf("Query() top match = %s, want a", matches[0].ID)
	}
	if matches[0].Distance > matches[1].Distance {
		t.Errorf("Query() distances not ascending: %v, %v", matches[0].Distance, matches[1].Distance)
	}
	if kind, _ := matches[0].Metadata["kind"].Str(); kind != "animal" {
		t.Errorf("Query() metadata kind = %q, want animal", kind)
	}
	if matches[0].Text != "cats are mammals" {
		t.Errorf("Query() text = %q", matches[0].Text)
	}
}

func TestMemoryStore_UpsertReplaces(t *testing.T) {
	ctx := context.Background()
	s := newTestMemoryStore(t)

	_ = s.Upsert(ctx, "docs", []Document{{ID: "x", Text: "first"}})
	_ = s.Upsert(ctx, "docs", []Document{{ID: "x", Text: "second"}})

	count, _ := s.Count(ctx, "docs")
	if count != 1 {
		t.Errorf("Count() = %d, want 1", count)
	}
	matches, err := s.Query(ctx, "docs", Query{Text: "anything", K: 1})
	if err != nil || len(matches) != 1 || matches[0].Text != "second" {
		t.Errorf("Query() = %v, %v, want text second", matches, err)
	}
}

func TestMemoryStore_EmbeddingInput(t *testing.T) {
	ctx := context.Background()
	s := newTestMemoryStore(t)

	// Text mentions nothing, the embedding input carries the concept.
	docs := []Document{
		{ID: "md", Text: "# Heading", EmbeddingInput: "rocket fuel"},
		{ID: "other", Text: "cats"},
	}
	if err := s.Upsert(ctx, "docs", docs); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	matches, _ := s.Query(ctx, "docs", Query{Text: "space", K: 1})
	if len(matches) != 1 || matches[0].ID != "md" || matches[0].Text != "# Heading" {
		t.Errorf("Query() = %+v, want md with original text", matches)
	}
}

func TestMemoryStore_QueryFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestMemoryStore(t)

	docs := []Document{
		{ID: "1", Text: "cats one", Metadata: metadata.Metadata{"year": metadata.Number(2024), "lang": metadata.String("en")}},
		{ID: "2", Text: "cats two", Metadata: metadata.Metadata{"year": metadata.String("2024"), "lang": metadata.String("en")}},
		{ID: "3", Text: "cats three", Metadata: metadata.Metadata{"year": metadata.Number(2023), "draft": metadata.Bool(true)}},
	}
	if err := s.Upsert(ctx, "docs", docs); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	tests := []struct {
		name    string
		query   Query
		wantIDs []string
	}{
		{"number is kind sensitive", Query{Text: "cats", K: 10, Where: metadata.Filter{"year": metadata.Number(2024)}}, []string{"1"}},
		{"string is kind sensitive", Query{Text: "cats", K: 10, Where: metadata.Filter{"year": metadata.String("2024")}}, []string{"2"}},
		{"bool", Query{Text: "cats", K: 10, Where: metadata.Filter{"draft": metadata.Bool(true)}}, []string{"3"}},
		{"no match", Query{Text: "cats", K: 10, Where: metadata.Filter{"lang": metadata.String("de")}}, nil},
		{"contains", Query{Text: "cats", K: 10, WhereDocument: map[string]string{"$contains": "two"}}, []string{"2"}},
		{"not contains", Query{Text: "cats", K: 10, WhereDocument: map[string]string{"$not_contains": "two"}}, []string{"1", "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches, err := s.Query(ctx, "docs", tt.query)
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if len(matches) != len(tt.wantIDs) {
				t.Fatalf("Query() returned %d matches, want %d", len(matches), len(tt.wantIDs))
			}
			got := map[string]bool{}
			for _, m := range matches {
				got[m.ID] = true
				if !tt.query.Where.Matches(m.Metadata) {
					t.Errorf("match %s does not satisfy filter", m.ID)
				}
			}
			for _, id := range tt.wantIDs {
				if !got[id] {
					t.Errorf("Query() missing %s", id)
				}
			}
		})
	}
}

func TestMemoryStore_QueryEdgeCases(t *testing.T) {
	ctx := context.Background()
	s := newTestMemoryStore(t)

	matches, err := s.Query(ctx, "docs", Query{Text: "cats", K: 5})
	if err != nil || len(matches) != 0 {
		t.Errorf("Query() on empty collection = %v, %v, want empty", matches, err)
	}
	if _, err := s.Query(ctx, "missing", Query{Text: "cats", K: 5}); !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("Query() error = %v, want ErrCollectionNotFound", err)
	}
	if _, err := s.Query(ctx, "docs", Query{Text: "cats", K: 0}); err == nil {
		t.Error("Query() with K=0 expected error")
	}
}

func TestMemoryStore_DeleteDocument(t *testing.T) {
	ctx := context.Background()
	s := newTestMemoryStore(t)
	_ = s.Upsert(ctx, "docs", []Document{{ID: "a", Text: "cats"}, {ID: "b", Text: "rockets"}})

	if err := s.DeleteDocument(ctx, "docs", "a"); err != nil {
		t.Fatalf("DeleteDocument() error = %v", err)
	}
	if err := s.DeleteDocument(ctx, "docs", "a"); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("DeleteDocument() twice error = %v, want ErrDocumentNotFound", err)
	}
	if err := s.DeleteDocument(ctx, "missing", "a"); !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("DeleteDocument() error = %v, want ErrCollectionNotFound", err)
	}

	matches, _ := s.Query(ctx, "docs", Query{Text: "cats", K: 5})
	for _, m := range matches {
		if m.ID == "a" {
			t.Error("deleted document returned by Query()")
		}
	}
}

func TestMemoryStore_EmbeddingFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	embedder := &conceptEmbedder{}
	s := NewMemoryStore(embedder)
	_ = s.CreateCollection(ctx, "docs")

	embedder.fail = true
	if err := s.Upsert(ctx, "docs", []Document{{ID: "a", Text: "cats"}}); err == nil {
		t.Fatal("Upsert() expected error")
	}
	if count, _ := s.Count(ctx, "docs"); count != 0 {
		t.Errorf("Count() = %d, want 0", count)
	}
	if err := s.Upsert(ctx, "missing", []Document{{ID: "a", Text: "cats"}}); err == nil {
		t.Error("Upsert() into missing collection expected error")
	}
}

// cancellingEmbedder cancels the caller's context once embeddings are ready.
type cancellingEmbedder struct {
	conceptEmbedder
	cancel context.CancelFunc
}

func (e *cancellingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := e.conceptEmbedder.EmbedTexts(ctx, texts)
	e.cancel()
	return vectors, err
}

func TestMemoryStore_CancelledAfterEmbeddingWritesNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewMemoryStore(&cancellingEmbedder{cancel: cancel})
	if err := s.CreateCollection(context.Background(), "docs"); err != nil {
		t.Fatalf("CreateCollection() error = %v", err)
	}

	docs := make([]Document, 50)
	for i := range docs {
		docs[i] = Document{ID: fmt.Sprintf("doc-%d", i), Text: "cats"}
	}
	if err := s.Upsert(ctx, "docs", docs); !errors.Is(err, context.Canceled) {
		t.Fatalf("Upsert() error = %v, want context.Canceled", err)
	}
	if count, _ := s.Count(context.Background(), "docs"); count != 0 {
		t.Errorf("Count() = %d, want 0", count)
	}
}

func TestMemoryStore_QueryCancelledContext(t *testing.T) {
	s := newTestMemoryStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.CollectionExists(ctx, "docs"); !errors.Is(err, context.Canceled) {
		t.Errorf("CollectionExists() error = %v, want context.Canceled", err)
	}
	_, err := s.Query(ctx, "docs", Query{Text: "cats", K: 1})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Query() error = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrCollectionNotFound) {
		t.Error("Query() reported a missing collection for a cancelled request")
	}
}

func TestMemoryStore_Reset(t *testing.T) {
	ctx := context.Background()
	s := newTestMemoryStore(t)
	_ = s.CreateCollection(ctx, "other")

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	names, _ := s.ListCollections(ctx)
	if len(names) != 0 {
		t.Errorf("ListCollections() after Reset = %v, want empty", names)
	}
}

func TestMemoryStore_ConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	s := newTestMemoryStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Upsert(ctx, "docs", []Document{{ID: string(rune('a' + i)), Text: "cats"}})
			_, _ = s.Query(ctx, "docs", Query{Text: "cats", K: 3})
		}(i)
	}
	wg.Wait()

	if count, _ := s.Count(ctx, "docs"); count != 8 {
		t.Errorf("Count() = %d, want 8", count)
	}
}
