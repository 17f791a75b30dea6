package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"research-vectordb/internal/contextutil"
	"research-vectordb/internal/service"
)

// Error kinds reported in ErrorResponse.Error.
const (
	KindUnauthorized    = "Unauthorized"
	KindValidation      = "ValidationError"
	KindNotFound        = "NotFound"
	KindConflict        = "Conflict"
	KindForbidden       = "Forbidden"
	KindEngineFailure   = "EngineFailure"
	KindUpstreamFailure = "UpstreamFailure"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 32 << 20

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// MessageResponse is returned by operations without a richer result.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON writes v with the given status code.
func writeJSON(ctx context.Context, w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, kind, message, field string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   kind,
		Message: message,
		Field:   field,
	})
}

// WriteUnauthorized writes the 401 response used by the API key middleware.
func WriteUnauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, KindUnauthorized, "missing or invalid API key", "")
}

// handleServiceError maps service errors to HTTP responses. Only engine and
// upstream failures are logged as errors; the rest are client mistakes.
func handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	logger := contextutil.LoggerFromContext(ctx)

	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		logger.WarnContext(ctx, "validation error", "field", validationErr.Field, "error", validationErr.Message)
		writeError(w, http.StatusUnprocessableEntity, KindValidation, validationErr.Error(), validationErr.Field)
		return
	}

	var docErr *service.DocumentError
	if errors.As(err, &docErr) {
		logger.WarnContext(ctx, "invalid document", "field", docErr.FieldPath(), "error", docErr.Message)
		writeError(w, http.StatusBadRequest, KindValidation, docErr.Error(), docErr.FieldPath())
		return
	}

	switch {
	case errors.Is(err, service.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, KindUnauthorized, err.Error(), "")
	case errors.Is(err, service.ErrNotFound):
		logger.WarnContext(ctx, "not found", "error", err)
		writeError(w, http.StatusNotFound, KindNotFound, err.Error(), "")
	case errors.Is(err, service.ErrConflict):
		logger.WarnContext(ctx, "conflict", "error", err)
		writeError(w, http.StatusConflict, KindConflict, err.Error(), "")
	case errors.Is(err, service.ErrForbidden):
		logger.WarnContext(ctx, "forbidden", "error", err)
		writeError(w, http.StatusForbidden, KindForbidden, err.Error(), "")
	case errors.Is(err, service.ErrUpstream):
		logger.ErrorContext(ctx, "upstream failure", "error", err)
		writeError(w, http.StatusBadGateway, KindUpstreamFailure, err.Error(), "")
	default:
		logger.ErrorContext(ctx, "engine failure", "error", err)
		writeError(w, http.StatusInternalServerError, KindEngineFailure, err.Error(), "")
	}
}

// decodeJSON decodes the request body into v. Unknown fields are ignored;
// missing bodies, syntax errors and type mismatches become ValidationErrors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var typeErr *json.UnmarshalTypeError
		var syntaxErr *json.SyntaxError
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return &service.ValidationError{Field: "body", Message: "request body is required"}
		case errors.As(err, &typeErr):
			field := typeErr.Field
			if field == "" {
				field = "body"
			}
			return &service.ValidationError{Field: field, Message: fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value)}
		case errors.As(err, &syntaxErr):
			return &service.ValidationError{Field: "body", Message: fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset)}
		case errors.As(err, &maxErr):
			return &service.ValidationError{Field: "body", Message: "request body too large"}
		default:
			return &service.ValidationError{Field: "body", Message: err.Error()}
		}
	}
	return nil
}

// RouteNotFound answers requests for unknown paths.
func RouteNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, KindNotFound, fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path), "")
}

// MethodNotAllowed answers requests with an unsupported method on a known path.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", fmt.Sprintf("method %s not allowed on %s", r.Method, r.URL.Path), "")
}
