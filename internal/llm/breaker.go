package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// ErrEmbeddingsUnavailable is returned while the circuit breaker is open.
var ErrEmbeddingsUnavailable = errors.New("embeddings service unavailable")

// BreakerConfig configures BreakerEmbedder.
type BreakerConfig struct {
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
	// Interval resets failure counts while closed. Zero never resets.
	Interval time.Duration
}

// DefaultBreakerConfig returns the defaults used by the server.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
		Interval:            60 * time.Second,
	}
}

// BreakerEmbedder fails fast after repeated embedding failures instead of
// sending every request to an unhealthy embeddings service.
type BreakerEmbedder struct {
	inner Embedder
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerEmbedder wraps inner with a circuit breaker.
func NewBreakerEmbedder(inner Embedder, cfg BreakerConfig) *BreakerEmbedder {
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = DefaultBreakerConfig().ConsecutiveFailures
	}
	threshold := cfg.ConsecutiveFailures

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "embeddings",
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
		// Caller cancellations say nothing about the embeddings service.
		// Deadlines do: a hung server surfaces as a client or request timeout.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &BreakerEmbedder{inner: inner, cb: cb}
}

// ModelName returns the wrapped embedder's model name.
func (b *BreakerEmbedder) ModelName() string {
	return b.inner.ModelName()
}

// State reports the breaker state ("closed", "half-open" or "open").
func (b *BreakerEmbedder) State() string {
	return b.cb.State().String()
}

// EmbedTexts calls the wrapped embedder through the breaker.
func (b *BreakerEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.EmbedTexts(ctx, texts)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrEmbeddingsUnavailable, err)
		}
		return nil, err
	}
	return result.([][]float32), nil
}
