package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"research-vectordb/internal/config"
	"research-vectordb/internal/drive"
	"research-vectordb/internal/http"
	"research-vectordb/internal/indexer"
	"research-vectordb/internal/llm"
	"research-vectordb/internal/metrics"
	"research-vectordb/internal/service"
	"research-vectordb/internal/storage"
	"research-vectordb/internal/vectorstore"
)

const (
	serviceName = "vectordb-api"
	version     = "1.0.0"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	embedder, closeCache := newEmbedder(ctx, cfg, m)
	defer closeCache()

	// Initialize vector engine
	var engine vectorstore.Engine
	switch cfg.VectorBackend {
	case config.BackendQdrant:
		store, err := vectorstore.NewQdrantStore(cfg.QdrantURL, cfg.QdrantAPIKey, cfg.VectorSize, embedder)
		if err != nil {
			log.Fatalf("Failed to create Qdrant client: %v", err)
		}
		defer func() {
			_ = store.Close()
		}()
		if err := store.Heartbeat(ctx); err != nil {
			slog.Warn("Qdrant not reachable at startup", "url", cfg.QdrantURL, "error", err)
		}
		engine = store
		slog.Info("Qdrant engine initialized", "url", cfg.QdrantURL, "vector_size", cfg.VectorSize)
	default:
		engine = vectorstore.NewMemoryStore(embedder)
		slog.Info("In-memory engine initialized")
	}
	engine = m.InstrumentEngine(engine)

	collections := service.NewCollectionService(engine, cfg.DefaultCollection, cfg.AllowReset)
	queries := service.NewQueryService(engine, cfg.DefaultCollection, cfg.MaxQueryResults)
	pipeline := indexer.NewPipeline(engine, cfg.DefaultCollection, cfg.MaxBatchSize)
	importer := drive.NewImporter(drive.NewFetcher(nil), pipeline, cfg.DefaultCollection)

	router := http.NewRouter(&http.Deps{
		APIKey:         cfg.APIKey,
		Collections:    collections,
		Queries:        queries,
		Ingester:       pipeline,
		DriveImporter:  importer,
		Metrics:        m,
		ServiceName:    serviceName,
		Version:        version,
		Mode:           cfg.VectorBackend,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &nethttp.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Starting API server", "addr", srv.Addr, "backend", cfg.VectorBackend, "default_collection", cfg.DefaultCollection)
		if !cfg.AllowReset {
			slog.Info("Reset endpoint disabled")
		}
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			log.Fatalf("API server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down API server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}

// newEmbedder builds the embedding chain: provider, circuit breaker, then
// the sqlite cache when enabled. The returned func closes the cache database.
func newEmbedder(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (llm.Embedder, func()) {
	var embedder llm.Embedder
	switch cfg.EmbeddingProvider {
	case config.ProviderHTTP:
		client := llm.NewEmbeddingsClient(
			cfg.EmbeddingBaseURL,
			cfg.EmbeddingAPIKey,
			cfg.EmbeddingModelName,
			cfg.VectorSize,
			llm.WithRateLimit(cfg.EmbeddingRateLimit, 1),
		)

		// Validate embedding client vector size (fail-fast)
		if _, err := client.EmbedTexts(ctx, []string{"test"}); err != nil {
			log.Fatalf("Failed to validate embedding client: %v", err)
		}
		slog.Info("Embedding client validated", "base_url", cfg.EmbeddingBaseURL, "model", cfg.EmbeddingModelName, "vector_size", cfg.VectorSize)

		embedder = llm.NewBreakerEmbedder(client, llm.DefaultBreakerConfig())
	default:
		embedder = llm.NewHashEmbedder(cfg.VectorSize)
		slog.Warn("Using offline hash embedder, similarity reflects shared words and letter groups only",
			"vector_size", cfg.VectorSize)
	}

	if !cfg.CacheEnabled() {
		return embedder, func() {}
	}

	db, err := storage.New(cfg.EmbeddingCachePath)
	if err != nil {
		log.Fatalf("Failed to open embedding cache: %v", err)
	}
	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Embedding cache initialized", "path", cfg.EmbeddingCachePath)

	cached := llm.NewCachedEmbedder(embedder, storage.NewEmbeddingRepo(db, cfg.VectorSize), m)
	return cached, func() {
		_ = db.Close()
	}
}
