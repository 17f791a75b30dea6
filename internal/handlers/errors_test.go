package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"research-vectordb/internal/service"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp
}

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
		wantField  string
	}{
		{
			name:       "validation error",
			err:        &service.ValidationError{Field: "query_text", Message: "cannot be empty"},
			wantStatus: http.StatusUnprocessableEntity,
			wantKind:   KindValidation,
			wantField:  "query_text",
		},
		{
			name:       "wrapped validation error",
			err:        fmt.Errorf("query: %w", &service.ValidationError{Field: "n_results", Message: "too large"}),
			wantStatus: http.StatusUnprocessableEntity,
			wantKind:   KindValidation,
			wantField:  "n_results",
		},
		{
			name:       "document error",
			err:        &service.DocumentError{Index: 2, Field: "text", Message: "cannot be empty"},
			wantStatus: http.StatusBadRequest,
			wantKind:   KindValidation,
			wantField:  "documents[2].text",
		},
		{
			name:       "not found",
			err:        fmt.Errorf("%w: collection 'x' does not exist", service.ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantKind:   KindNotFound,
		},
		{
			name:       "conflict",
			err:        fmt.Errorf("%w: collection 'x' already exists", service.ErrConflict),
			wantStatus: http.StatusConflict,
			wantKind:   KindConflict,
		},
		{
			name:       "forbidden",
			err:        fmt.Errorf("%w: reset is disabled", service.ErrForbidden),
			wantStatus: http.StatusForbidden,
			wantKind:   KindForbidden,
		},
		{
			name:       "unauthorized",
			err:        service.ErrUnauthorized,
			wantStatus: http.StatusUnauthorized,
			wantKind:   KindUnauthorized,
		},
		{
			name:       "upstream",
			err:        fmt.Errorf("%w: drive list failed", service.ErrUpstream),
			wantStatus: http.StatusBadGateway,
			wantKind:   KindUpstreamFailure,
		},
		{
			name:       "engine",
			err:        fmt.Errorf("%w: disk full", service.ErrEngine),
			wantStatus: http.StatusInternalServerError,
			wantKind:   KindEngineFailure,
		},
		{
			name:       "unknown error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantKind:   KindEngineFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handleServiceError(context.Background(), w, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}
			resp := decodeError(t, w)
			if resp.Error != tt.wantKind {
				t.Errorf("error kind = %q, want %q", resp.Error, tt.wantKind)
			}
			if resp.Field != tt.wantField {
				t.Errorf("field = %q, want %q", resp.Field, tt.wantField)
			}
			if resp.Message == "" {
				t.Error("message should not be empty")
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	tests := []struct {
		name      string
		body      string
		wantErr   bool
		wantField string
	}{
		{name: "valid", body: `{"name":"a","count":2}`},
		{name: "unknown fields ignored", body: `{"name":"a","extra":true}`},
		{name: "empty body", body: ``, wantErr: true, wantField: "body"},
		{name: "malformed", body: `{"name":`, wantErr: true, wantField: "body"},
		{name: "syntax error", body: `{name}`, wantErr: true, wantField: "body"},
		{name: "wrong type", body: `{"count":"two"}`, wantErr: true, wantField: "count"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			var p payload
			err := decodeJSON(w, r, &p)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}
			var validationErr *service.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("decodeJSON() error type = %T, want *service.ValidationError", err)
			}
			if validationErr.Field != tt.wantField {
				t.Errorf("field = %q, want %q", validationErr.Field, tt.wantField)
			}
		})
	}
}

func TestWriteUnauthorized(t *testing.T) {
	w := httptest.NewRecorder()
	WriteUnauthorized(w)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if resp := decodeError(t, w); resp.Error != KindUnauthorized {
		t.Errorf("error kind = %q, want %q", resp.Error, KindUnauthorized)
	}
}
