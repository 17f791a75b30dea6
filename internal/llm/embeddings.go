package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"research-vectordb/internal/contextutil"
)

// EmbeddingsClient is a client for an OpenAI-compatible embeddings API (llama.cpp, vLLM, Ollama, OpenAI).
type EmbeddingsClient struct {
	BaseURL      string
	APIKey       string
	Model        string
	ExpectedSize int // Expected vector size for validation
	client       *http.Client
	limiter      *rate.Limiter
}

// ClientOption configures an EmbeddingsClient.
type ClientOption func(*EmbeddingsClient)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *EmbeddingsClient) {
		c.client = client
	}
}

// WithRateLimit throttles requests to rps requests per second.
// A non-positive rps leaves the client unthrottled.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *EmbeddingsClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewEmbeddingsClient creates a new embeddings client.
// expectedSize is the expected vector size (from VECTOR_SIZE config).
// All embeddings returned by EmbedTexts will be validated against this size.
func NewEmbeddingsClient(baseURL, apiKey, model string, expectedSize int, opts ...ClientOption) *EmbeddingsClient {
	c := &EmbeddingsClient{
		BaseURL:      baseURL,
		APIKey:       apiKey,
		Model:        model,
		ExpectedSize: expectedSize,
		client:       &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EmbeddingsRequest represents the request payload for embeddings API.
type EmbeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// EmbeddingData represents a single embedding in the response.
type EmbeddingData struct {
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// EmbeddingsResponse represents the response from the embeddings API.
type EmbeddingsResponse struct {
	Data []EmbeddingData `json:"data"`
}

// ModelName returns the configured model name.
func (c *EmbeddingsClient) ModelName() string {
	return c.Model
}

// EmbedTexts generates embeddings for the given texts in a single request.
// Returns a slice of float32 vectors, one per input text, in input order.
// Validates that all returned vectors match the expected size.
func (c *EmbeddingsClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(texts) == 0 {
		return nil, fmt.Errorf("empty input array")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("embedding rate limiter: %w", err)
		}
	}

	url := fmt.Sprintf("%s/v1/embeddings", c.BaseURL)

	payload := EmbeddingsRequest{
		Model: c.Model,
		Input: texts,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
	}

	var embeddingsResp EmbeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&embeddingsResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(embeddingsResp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(embeddingsResp.Data))
	}

	ordered := orderByIndex(embeddingsResp.Data)

	// Convert []float64 to []float32 and validate size
	result := make([][]float32, len(ordered))
	for i, data := range ordered {
		if len(data.Embedding) != c.ExpectedSize {
			return nil, fmt.Errorf("embedding %d has size %d, expected %d", i, len(data.Embedding), c.ExpectedSize)
		}

		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		result[i] = vec
	}

	logger.DebugContext(ctx, "embedded texts", "count", len(texts), "model", c.Model, "duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

// orderByIndex reorders data by its index field when the indices form a
// permutation of the positions; otherwise the response order is kept.
func orderByIndex(data []EmbeddingData) []EmbeddingData {
	ordered := make([]EmbeddingData, len(data))
	seen := make([]bool, len(data))
	for _, d := range data {
		if d.Index < 0 || d.Index >= len(data) || seen[d.Index] {
			return data
		}
		seen[d.Index] = true
		ordered[d.Index] = d
	}
	return ordered
}
