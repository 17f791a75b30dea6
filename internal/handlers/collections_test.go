package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	"research-vectordb/internal/service"
	"research-vectordb/internal/service/mocks"
)

// withURLParams attaches chi route parameters to r.
func withURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestCollectionsHandler_Create(t *testing.T) {
	tests := []struct {
		name          string
		collection    string
		mockSetup     func(*mocks.MockCollectionService)
		wantStatus    int
		checkResponse func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:       "created",
			collection: "notes",
			mockSetup: func(m *mocks.MockCollectionService) {
				m.EXPECT().Create(gomock.Any(), "notes").Return(service.CollectionInfo{Name: "notes"}, nil)
			},
			wantStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp CollectionResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if resp.Name != "notes" || resp.Count != 0 {
					t.Errorf("response = %+v, want {notes 0}", resp)
				}
			},
		},
		{
			name:       "already exists",
			collection: "notes",
			mockSetup: func(m *mocks.MockCollectionService) {
				m.EXPECT().Create(gomock.Any(), "notes").
					Return(service.CollectionInfo{}, fmt.Errorf("%w: collection 'notes' already exists", service.ErrConflict))
			},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "invalid name",
			collection: strings.Repeat("x", 129),
			mockSetup: func(m *mocks.MockCollectionService) {
				m.EXPECT().Create(gomock.Any(), gomock.Any()).
					Return(service.CollectionInfo{}, &service.ValidationError{Field: "name", Message: "too long"})
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			m := mocks.NewMockCollectionService(ctrl)
			tt.mockSetup(m)

			h := NewCollectionsHandler(m)
			r := withURLParams(httptest.NewRequest(http.MethodPost, "/collections/"+tt.collection, nil),
				map[string]string{"name": tt.collection})
			w := httptest.NewRecorder()
			h.Create(w, r)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d; body = %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.checkResponse != nil {
				tt.checkResponse(t, w)
			}
		})
	}
}

func TestCollectionsHandler_List(t *testing.T) {
	tests := []struct {
		name       string
		names      []string
		wantStatus int
		wantBody   string
	}{
		{name: "several", names: []string{"a", "b"}, wantStatus: http.StatusOK, wantBody: `["a","b"]`},
		{name: "none", names: nil, wantStatus: http.StatusOK, wantBody: `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			m := mocks.NewMockCollectionService(ctrl)
			m.EXPECT().List(gomock.Any()).Return(tt.names, nil)

			w := httptest.NewRecorder()
			NewCollectionsHandler(m).List(w, httptest.NewRequest(http.MethodGet, "/collections", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := strings.TrimSpace(w.Body.String()); got != tt.wantBody {
				t.Errorf("body = %s, want %s", got, tt.wantBody)
			}
		})
	}
}

func TestCollectionsHandler_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := mocks.NewMockCollectionService(ctrl)
	gomock.InOrder(
		m.EXPECT().Delete(gomock.Any(), "notes").Return(nil),
		m.EXPECT().Delete(gomock.Any(), "missing").
			Return(fmt.Errorf("%w: collection 'missing' does not exist", service.ErrNotFound)),
	)
	h := NewCollectionsHandler(m)

	w := httptest.NewRecorder()
	h.Delete(w, withURLParams(httptest.NewRequest(http.MethodDelete, "/collections/notes", nil),
		map[string]string{"name": "notes"}))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var msg MessageResponse
	if err := json.NewDecoder(w.Body).Decode(&msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(msg.Message, "notes") {
		t.Errorf("message = %q, want it to name the collection", msg.Message)
	}

	w = httptest.NewRecorder()
	h.Delete(w, withURLParams(httptest.NewRequest(http.MethodDelete, "/collections/missing", nil),
		map[string]string{"name": "missing"}))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if resp := decodeError(t, w); resp.Error != KindNotFound {
		t.Errorf("error kind = %q, want %q", resp.Error, KindNotFound)
	}
}

func TestCollectionsHandler_Count(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := mocks.NewMockCollectionService(ctrl)
	m.EXPECT().Count(gomock.Any(), "notes").Return(service.CollectionInfo{Name: "notes", Count: 7}, nil)

	w := httptest.NewRecorder()
	NewCollectionsHandler(m).Count(w, withURLParams(httptest.NewRequest(http.MethodGet, "/collections/notes/count", nil),
		map[string]string{"name": "notes"}))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp CountResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.CollectionName != "notes" || resp.Count != 7 {
		t.Errorf("response = %+v, want {notes 7}", resp)
	}
}

func TestDocumentHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantColl   string
		returnColl string
		returnErr  error
		wantStatus int
	}{
		{
			name:       "default collection",
			target:     "/documents/doc-1",
			wantColl:   "",
			returnColl: "default",
			wantStatus: http.StatusOK,
		},
		{
			name:       "explicit collection",
			target:     "/documents/doc-1?collection_name=notes",
			wantColl:   "notes",
			returnColl: "notes",
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing document",
			target:     "/documents/doc-1?collection_name=notes",
			wantColl:   "notes",
			returnErr:  fmt.Errorf("%w: document not found in collection 'notes'", service.ErrNotFound),
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			m := mocks.NewMockCollectionService(ctrl)
			m.EXPECT().DeleteDocument(gomock.Any(), tt.wantColl, "doc-1").Return(tt.returnColl, tt.returnErr)

			w := httptest.NewRecorder()
			NewDocumentHandler(m).ServeHTTP(w, withURLParams(httptest.NewRequest(http.MethodDelete, tt.target, nil),
				map[string]string{"id": "doc-1"}))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.returnErr == nil && !strings.Contains(w.Body.String(), tt.returnColl) {
				t.Errorf("body = %s, want it to name collection %q", w.Body.String(), tt.returnColl)
			}
		})
	}
}

func TestResetHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "reset", wantStatus: http.StatusOK},
		{name: "disabled", err: fmt.Errorf("%w: reset is disabled on this server", service.ErrForbidden), wantStatus: http.StatusForbidden},
		{name: "engine failure", err: fmt.Errorf("%w: io", service.ErrEngine), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			m := mocks.NewMockCollectionService(ctrl)
			m.EXPECT().Reset(gomock.Any()).Return(tt.err)

			w := httptest.NewRecorder()
			NewResetHandler(m).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/reset", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}
