package service

import (
	"errors"
	"fmt"

	"research-vectordb/internal/vectorstore"
)

var (
	// ErrUnauthorized is returned when the API key is missing or wrong.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when creating something that already exists.
	ErrConflict = errors.New("conflict")
	// ErrForbidden is returned when an operation is disabled by configuration.
	ErrForbidden = errors.New("forbidden")
	// ErrEngine is returned when the vector engine or its embedder fails.
	ErrEngine = errors.New("engine failure")
	// ErrUpstream is returned when a third-party API used for import fails.
	ErrUpstream = errors.New("upstream failure")
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// DocumentError reports an invalid document inside an otherwise well-formed batch.
type DocumentError struct {
	Index   int
	Field   string
	Message string
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("invalid document on field %s: %s", e.FieldPath(), e.Message)
}

// FieldPath returns the location of the offending field, e.g. documents[2].text.
func (e *DocumentError) FieldPath() string {
	return fmt.Sprintf("documents[%d].%s", e.Index, e.Field)
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// EngineError translates an engine error for collection into a service error.
func EngineError(err error, collection string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, vectorstore.ErrCollectionNotFound):
		return fmt.Errorf("%w: collection '%s' does not exist", ErrNotFound, collection)
	case errors.Is(err, vectorstore.ErrCollectionExists):
		return fmt.Errorf("%w: collection '%s' already exists", ErrConflict, collection)
	case errors.Is(err, vectorstore.ErrDocumentNotFound):
		return fmt.Errorf("%w: document not found in collection '%s'", ErrNotFound, collection)
	default:
		return fmt.Errorf("%w: %w", ErrEngine, err)
	}
}
