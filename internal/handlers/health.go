package handlers

import (
	"context"
	"net/http"
	"time"

	"research-vectordb/internal/contextutil"
	"research-vectordb/internal/service"
)

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	collections        service.CollectionService
	serviceName        string
	version            string
	mode               string
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler. mode names the engine backend.
func NewHealthHandler(collections service.CollectionService, serviceName, version, mode string) *HealthHandler {
	return &HealthHandler{
		collections:        collections,
		serviceName:        serviceName,
		version:            version,
		mode:               mode,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	// "healthy" or "unhealthy"
	Status           string `json:"status"`
	CollectionsCount int    `json:"collections_count"`
	Service          string `json:"service"`
	Version          string `json:"version"`
	Mode             string `json:"mode"`
}

// ServeHTTP reports engine reachability. It needs no API key.
// Returns 200 OK if healthy, 503 Service Unavailable otherwise.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	response := HealthResponse{
		Status:  "healthy",
		Service: h.serviceName,
		Version: h.version,
		Mode:    h.mode,
	}
	httpStatus := http.StatusOK

	status, err := h.collections.Health(checkCtx)
	if err != nil {
		logger.WarnContext(ctx, "vector engine health check failed", "error", err)
		response.Status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	} else {
		response.CollectionsCount = status.CollectionsCount
	}

	writeJSON(ctx, w, httpStatus, response)
}
