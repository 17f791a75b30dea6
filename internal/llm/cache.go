package llm

import (
	"context"
	"fmt"

	"research-vectordb/internal/contextutil"
	"research-vectordb/internal/storage"
)

// CacheObserver receives hit/miss counts for each cache lookup.
type CacheObserver interface {
	ObserveEmbeddingCache(hits, misses int)
}

// CachedEmbedder serves repeated texts from an EmbeddingStore and forwards
// only the misses to the wrapped Embedder, in one batch.
type CachedEmbedder struct {
	inner    Embedder
	store    storage.EmbeddingStore
	observer CacheObserver
}

// NewCachedEmbedder wraps inner with store. observer may be nil.
func NewCachedEmbedder(inner Embedder, store storage.EmbeddingStore, observer CacheObserver) *CachedEmbedder {
	return &CachedEmbedder{
		inner:    inner,
		store:    store,
		observer: observer,
	}
}

// ModelName returns the wrapped embedder's model name.
func (c *CachedEmbedder) ModelName() string {
	return c.inner.ModelName()
}

// EmbedTexts returns cached vectors where available and embeds the rest.
// Cache read and write failures are logged and otherwise ignored.
func (c *CachedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(texts) == 0 {
		return nil, fmt.Errorf("empty input array")
	}

	model := c.inner.ModelName()
	hashes := make([]string, len(texts))
	unique := make([]string, 0, len(texts))
	seen := make(map[string]bool, len(texts))
	for i, text := range texts {
		h := storage.HashText(text)
		hashes[i] = h
		if !seen[h] {
			seen[h] = true
			unique = append(unique, h)
		}
	}

	cached, err := c.store.GetMany(ctx, model, unique)
	if err != nil {
		logger.WarnContext(ctx, "embedding cache lookup failed", "error", err)
		cached = map[string][]float32{}
	}

	// Collect distinct misses in first-seen order.
	var missTexts []string
	var missHashes []string
	queued := make(map[string]bool)
	for i, h := range hashes {
		if _, ok := cached[h]; ok || queued[h] {
			continue
		}
		queued[h] = true
		missTexts = append(missTexts, texts[i])
		missHashes = append(missHashes, h)
	}

	if c.observer != nil {
		c.observer.ObserveEmbeddingCache(len(unique)-len(missHashes), len(missHashes))
	}

	if len(missTexts) > 0 {
		vectors, err := c.inner.EmbedTexts(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(missTexts) {
			return nil, fmt.Errorf("expected %d embeddings, got %d", len(missTexts), len(vectors))
		}
		fresh := make(map[string][]float32, len(vectors))
		for i, vec := range vectors {
			fresh[missHashes[i]] = vec
			cached[missHashes[i]] = vec
		}
		if err := c.store.PutMany(ctx, model, fresh); err != nil {
			logger.WarnContext(ctx, "embedding cache write failed", "error", err, "count", len(fresh))
		}
	}

	result := make([][]float32, len(texts))
	for i, h := range hashes {
		result[i] = cached[h]
	}
	return result, nil
}
