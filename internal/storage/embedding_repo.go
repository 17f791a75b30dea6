package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedding_store.go -package=mocks research-vectordb/internal/storage EmbeddingStore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
)

// lookupBatchSize bounds the number of placeholders in a single IN clause.
const lookupBatchSize = 500

// EmbeddingStore defines the interface for the embedding cache.
type EmbeddingStore interface {
	// GetMany returns cached vectors keyed by text hash. Missing hashes are absent from the map.
	GetMany(ctx context.Context, model string, hashes []string) (map[string][]float32, error)
	// PutMany stores vectors keyed by text hash, replacing existing entries.
	PutMany(ctx context.Context, model string, vectors map[string][]float32) error
	// Count returns the number of cached vectors for a model.
	Count(ctx context.Context, model string) (int, error)
}

// EmbeddingRepo caches embedding vectors in SQLite.
// It implements the EmbeddingStore interface.
type EmbeddingRepo struct {
	db  *sql.DB
	dim int
}

// NewEmbeddingRepo creates a new EmbeddingRepo. When dim is positive, lookups
// only return vectors of that size, so a cache written under a different
// vector size is ignored rather than served.
func NewEmbeddingRepo(db *sql.DB, dim int) *EmbeddingRepo {
	return &EmbeddingRepo{db: db, dim: dim}
}

// HashText returns the cache key for a text.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// GetMany returns cached vectors keyed by text hash.
// Returns an empty map (not an error) when nothing is cached.
func (r *EmbeddingRepo) GetMany(ctx context.Context, model string, hashes []string) (map[string][]float32, error) {
	result := make(map[string][]float32, len(hashes))

	for start := 0; start < len(hashes); start += lookupBatchSize {
		end := min(start+lookupBatchSize, len(hashes))
		batch := hashes[start:end]

		query := "SELECT text_hash, vector FROM embeddings WHERE model = ?"
		args := make([]any, 0, len(batch)+2)
		args = append(args, model)
		if r.dim > 0 {
			query += " AND dim = ?"
			args = append(args, r.dim)
		}
		for _, h := range batch {
			args = append(args, h)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")

		rows, err := r.db.QueryContext(ctx, query+" AND text_hash IN ("+placeholders+")", args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query embeddings: %w", err)
		}

		for rows.Next() {
			var hash string
			var blob []byte
			if err := rows.Scan(&hash, &blob); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("failed to scan embedding: %w", err)
			}
			vec, err := decodeVector(blob)
			if err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("failed to decode embedding %s: %w", hash, err)
			}
			result[hash] = vec
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return nil, fmt.Errorf("row iteration error: %w", err)
		}
	}

	return result, nil
}

// PutMany stores vectors in a single transaction.
func (r *EmbeddingRepo) PutMany(ctx context.Context, model string, vectors map[string][]float32) error {
	if len(vectors) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO embeddings (model, text_hash, dim, vector) VALUES (?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for hash, vec := range vectors {
		if _, err := stmt.ExecContext(ctx, model, hash, len(vec), encodeVector(vec)); err != nil {
			return fmt.Errorf("failed to insert embedding: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit embeddings: %w", err)
	}
	return nil
}

// Count returns the number of cached vectors for a model.
func (r *EmbeddingRepo) Count(ctx context.Context, model string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings WHERE model = ?", model).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count embeddings: %w", err)
	}
	return n, nil
}
