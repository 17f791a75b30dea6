package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"research-vectordb/internal/service"
)

// Vector engine backends.
const (
	BackendMemory = "memory"
	BackendQdrant = "qdrant"
)

// Embedding providers. ProviderHash only scores lexical overlap and must be
// chosen explicitly.
const (
	ProviderHTTP = "http"
	ProviderHash = "hash"
)

// CacheDisabled turns the embedding cache off when used as EMBEDDING_CACHE_PATH.
const CacheDisabled = "off"

// Config holds all configuration for the application.
type Config struct {
	APIKey            string
	DefaultCollection string
	APIPort           string
	LogLevel          slog.Level
	LogFormat         string

	VectorBackend string
	QdrantURL     string
	QdrantAPIKey  string

	EmbeddingProvider  string
	EmbeddingBaseURL   string
	EmbeddingModelName string
	EmbeddingAPIKey    string
	VectorSize         int
	EmbeddingRateLimit float64
	EmbeddingCachePath string

	MaxQueryResults int
	MaxBatchSize    int
	AllowReset      bool
	RequestTimeout  time.Duration
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates the rest.
// If a .env file exists in the current directory or a parent, it is loaded first;
// variables already set in the environment take precedence over .env values.
func Load() (*Config, error) {
	loadDotEnv()

	cfg := &Config{
		APIKey:             getEnv("VECTORDB_API_KEY", "dev-vectordb-key-12345"),
		DefaultCollection:  getEnv("DEFAULT_COLLECTION", "documents"),
		APIPort:            getEnv("API_PORT", "8003"),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
		VectorBackend:      strings.ToLower(getEnv("VECTOR_BACKEND", BackendMemory)),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey:       getEnv("QDRANT_API_KEY", ""),
		EmbeddingProvider:  strings.ToLower(getEnv("EMBEDDING_PROVIDER", ProviderHTTP)),
		EmbeddingBaseURL:   strings.TrimRight(getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"), "/"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "granite-embedding-278m-multilingual"),
		EmbeddingAPIKey:    getEnv("EMBEDDING_API_KEY", "dummy-key"),
		EmbeddingCachePath: getEnv("EMBEDDING_CACHE_PATH", "file::memory:?cache=shared"),
	}

	var err error
	if cfg.LogLevel, err = parseLogLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}
	if cfg.VectorBackend != BackendMemory && cfg.VectorBackend != BackendQdrant {
		return nil, fmt.Errorf("VECTOR_BACKEND must be %s or %s, got %q", BackendMemory, BackendQdrant, cfg.VectorBackend)
	}
	if cfg.EmbeddingProvider != ProviderHTTP && cfg.EmbeddingProvider != ProviderHash {
		return nil, fmt.Errorf("EMBEDDING_PROVIDER must be %s or %s, got %q", ProviderHTTP, ProviderHash, cfg.EmbeddingProvider)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("VECTORDB_API_KEY cannot be empty")
	}
	if err := service.ValidateCollectionName("DEFAULT_COLLECTION", cfg.DefaultCollection); err != nil {
		return nil, err
	}

	// VECTOR_SIZE must match the output size of the embedding model. Changing
	// it requires recreating existing Qdrant collections.
	if cfg.VectorSize, err = getPositiveInt("VECTOR_SIZE", 384); err != nil {
		return nil, err
	}
	if cfg.MaxQueryResults, err = getPositiveInt("MAX_QUERY_RESULTS", 100); err != nil {
		return nil, err
	}
	if cfg.MaxBatchSize, err = getPositiveInt("MAX_BATCH_SIZE", 1000); err != nil {
		return nil, err
	}

	rateStr := getEnv("EMBEDDING_RATE_LIMIT", "0")
	if cfg.EmbeddingRateLimit, err = strconv.ParseFloat(rateStr, 64); err != nil || cfg.EmbeddingRateLimit < 0 {
		return nil, fmt.Errorf("EMBEDDING_RATE_LIMIT must be a non-negative number, got %q", rateStr)
	}

	resetStr := getEnv("ALLOW_RESET", "true")
	if cfg.AllowReset, err = strconv.ParseBool(resetStr); err != nil {
		return nil, fmt.Errorf("ALLOW_RESET must be a boolean: %w", err)
	}

	timeoutStr := getEnv("REQUEST_TIMEOUT", "60s")
	if cfg.RequestTimeout, err = time.ParseDuration(timeoutStr); err != nil || cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("REQUEST_TIMEOUT must be a positive duration, got %q", timeoutStr)
	}

	// Create the cache directory for file-backed sqlite paths.
	if cfg.CacheEnabled() && !strings.HasPrefix(cfg.EmbeddingCachePath, "file:") {
		if err := os.MkdirAll(filepath.Dir(cfg.EmbeddingCachePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	return cfg, nil
}

// CacheEnabled reports whether the sqlite embedding cache is configured.
func (c *Config) CacheEnabled() bool {
	return c.EmbeddingCachePath != "" && c.EmbeddingCachePath != CacheDisabled
}

// loadDotEnv loads .env from the current directory, then the nearest one
// found walking up towards the filesystem root.
func loadDotEnv() {
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err != nil {
		return
	}
	dir := wd
	for i := 0; i < 5; i++ { // Limit search depth
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error: %w", err)
	}
	return level, nil
}

func getPositiveInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, strconv.Itoa(defaultValue))
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return n, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
