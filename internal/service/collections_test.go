package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"research-vectordb/internal/service"
	"research-vectordb/internal/vectorstore"
	"research-vectordb/internal/vectorstore/mocks"
)

func init() {
	// Set default logger to discard output for cleaner test output
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testContext() context.Context {
	return context.Background()
}

func TestCollectionService_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := mocks.NewMockEngine(ctrl)
	svc := service.NewCollectionService(engine, "documents", true)

	tests := []struct {
		name      string
		input     string
		mockSetup func()
		wantErr   error
		wantField string
	}{
		{
			name:  "created",
			input: "docs",
			mockSetup: func() {
				engine.EXPECT().CreateCollection(gomock.Any(), "docs").Return(nil)
			},
		},
		{
			name:  "already exists",
			input: "docs",
			mockSetup: func() {
				engine.EXPECT().CreateCollection(gomock.Any(), "docs").Return(vectorstore.ErrCollectionExists)
			},
			wantErr: service.ErrConflict,
		},
		{
			name:      "blank name",
			input:     "  ",
			mockSetup: func() {},
			wantField: "name",
		},
		{
			name:      "name too long",
			input:     strings.Repeat("x", 129),
			mockSetup: func() {},
			wantField: "name",
		},
		{
			name:  "engine failure",
			input: "docs",
			mockSetup: func() {
				engine.EXPECT().CreateCollection(gomock.Any(), "docs").Return(errors.New("boom"))
			},
			wantErr: service.ErrEngine,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			got, err := svc.Create(testContext(), tt.input)

			switch {
			case tt.wantField != "":
				var validationErr *service.ValidationError
				if !errors.As(err, &validationErr) || validationErr.Field != tt.wantField {
					t.Errorf("Create() error = %v, want ValidationError on %s", err, tt.wantField)
				}
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
				}
			default:
				if err != nil {
					t.Fatalf("Create() error = %v", err)
				}
				if got.Name != tt.input || got.Count != 0 {
					t.Errorf("Create() = %+v, want {%s 0}", got, tt.input)
				}
			}
		})
	}
}

func TestCollectionService_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := mocks.NewMockEngine(ctrl)
	svc := service.NewCollectionService(engine, "documents", true)

	engine.EXPECT().ListCollections(gomock.Any()).Return([]string{"zeta", "alpha", "mid"}, nil)
	got, err := svc.List(testContext())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"alpha", "mid", "zeta"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List() = %v, want %v", got, want)
			break
		}
	}

	engine.EXPECT().ListCollections(gomock.Any()).Return(nil, nil)
	got, err = svc.List(testContext())
	if err != nil || got == nil || len(got) != 0 {
		t.Errorf("List() = %#v, %v, want empty non-nil slice", got, err)
	}
}

func TestCollectionService_DeleteAndCount(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := mocks.NewMockEngine(ctrl)
	svc := service.NewCollectionService(engine, "documents", true)

	engine.EXPECT().DeleteCollection(gomock.Any(), "missing").Return(vectorstore.ErrCollectionNotFound)
	if err := svc.Delete(testContext(), "missing"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}

	engine.EXPECT().Count(gomock.Any(), "docs").Return(7, nil)
	info, err := svc.Count(testContext(), "docs")
	if err != nil || info.Count != 7 || info.Name != "docs" {
		t.Errorf("Count() = %+v, %v, want {docs 7}", info, err)
	}

	engine.EXPECT().Count(gomock.Any(), "missing").Return(0, vectorstore.ErrCollectionNotFound)
	if _, err := svc.Count(testContext(), "missing"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("Count() error = %v, want ErrNotFound", err)
	}
}

func TestCollectionService_DeleteDocument(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := mocks.NewMockEngine(ctrl)
	svc := service.NewCollectionService(engine, "documents", true)

	// Empty collection name falls back to the default collection.
	engine.EXPECT().DeleteDocument(gomock.Any(), "documents", "a").Return(nil)
	got, err := svc.DeleteDocument(testContext(), "", "a")
	if err != nil || got != "documents" {
		t.Errorf("DeleteDocument() = %v, %v, want documents", got, err)
	}

	engine.EXPECT().DeleteDocument(gomock.Any(), "docs", "zzz").Return(vectorstore.ErrDocumentNotFound)
	if _, err := svc.DeleteDocument(testContext(), "docs", "zzz"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("DeleteDocument() error = %v, want ErrNotFound", err)
	}
}

func TestCollectionService_Reset(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := mocks.NewMockEngine(ctrl)

	engine.EXPECT().Reset(gomock.Any()).Return(nil)
	if err := service.NewCollectionService(engine, "documents", true).Reset(testContext()); err != nil {
		t.Errorf("Reset() error = %v", err)
	}

	// No engine call when reset is disabled.
	if err := service.NewCollectionService(engine, "documents", false).Reset(testContext()); !errors.Is(err, service.ErrForbidden) {
		t.Errorf("Reset() error = %v, want ErrForbidden", err)
	}
}

func TestCollectionService_Health(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := mocks.NewMockEngine(ctrl)
	svc := service.NewCollectionService(engine, "documents", true)

	engine.EXPECT().Heartbeat(gomock.Any()).Return(nil)
	engine.EXPECT().ListCollections(gomock.Any()).Return([]string{"a", "b"}, nil)
	status, err := svc.Health(testContext())
	if err != nil || status.CollectionsCount != 2 {
		t.Errorf("Health() = %+v, %v, want 2 collections", status, err)
	}

	engine.EXPECT().Heartbeat(gomock.Any()).Return(errors.New("connection refused"))
	if _, err := svc.Health(testContext()); !errors.Is(err, service.ErrEngine) {
		t.Errorf("Health() error = %v, want ErrEngine", err)
	}
}
