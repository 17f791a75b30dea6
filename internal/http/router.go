package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"research-vectordb/internal/handlers"
	"research-vectordb/internal/metrics"
	"research-vectordb/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	APIKey        string
	Collections   service.CollectionService
	Queries       service.QueryService
	Ingester      handlers.Ingester
	DriveImporter handlers.DriveImporter // nil disables POST /ingest/drive
	Metrics       *metrics.Metrics       // nil disables /metrics and request instrumentation

	ServiceName    string
	Version        string
	Mode           string
	RequestTimeout time.Duration
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	r.Use(APIKeyAuth(deps.APIKey))
	if deps.RequestTimeout > 0 {
		r.Use(middleware.Timeout(deps.RequestTimeout))
	}

	r.NotFound(handlers.RouteNotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	collections := handlers.NewCollectionsHandler(deps.Collections)

	r.Method(http.MethodGet, "/health", handlers.NewHealthHandler(deps.Collections, deps.ServiceName, deps.Version, deps.Mode))

	r.Route("/collections", func(r chi.Router) {
		r.Get("/", collections.List)
		r.Post("/{name}", collections.Create)
		r.Delete("/{name}", collections.Delete)
		r.Get("/{name}/count", collections.Count)
	})

	r.Method(http.MethodPost, "/ingest", handlers.NewIngestHandler(deps.Ingester))
	if deps.DriveImporter != nil {
		r.Method(http.MethodPost, "/ingest/drive", handlers.NewDriveHandler(deps.DriveImporter))
	}
	r.Method(http.MethodPost, "/query", handlers.NewQueryHandler(deps.Queries))
	r.Method(http.MethodDelete, "/documents/{id}", handlers.NewDocumentHandler(deps.Collections))
	r.Method(http.MethodPost, "/reset", handlers.NewResetHandler(deps.Collections))

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	return r
}
