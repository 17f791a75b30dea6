package llm

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks research-vectordb/internal/llm Embedder

import "context"

// Embedder turns texts into vectors.
type Embedder interface {
	// EmbedTexts returns one vector per input text, in input order.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	// ModelName identifies the embedding model; vectors from different models are not comparable.
	ModelName() string
}
