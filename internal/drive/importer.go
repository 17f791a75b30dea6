package drive

import (
	"context"
	"fmt"
	"strings"

	"research-vectordb/internal/contextutil"
	"research-vectordb/internal/indexer"
	"research-vectordb/internal/service"
)

// File count bounds for one import.
const (
	DefaultMaxFiles = 100
	MaxFilesLimit   = 1000
)

// DocumentFetcher is the source of Drive documents.
type DocumentFetcher interface {
	Fetch(ctx context.Context, accessToken string, maxFiles int, query string) (FetchResult, error)
}

// Ingester writes a batch of documents.
type Ingester interface {
	Ingest(ctx context.Context, req indexer.Request) (indexer.Result, error)
}

// ImportRequest is one Drive import.
type ImportRequest struct {
	AccessToken    string
	CollectionName string
	// MaxFiles is nil when the caller did not set it.
	MaxFiles *int
	Query    string
}

// ImportResult reports the outcome of an import.
type ImportResult struct {
	IngestedCount  int
	SkippedCount   int
	CollectionName string
}

// Importer fetches Drive files and sends them through the ingestion pipeline.
type Importer struct {
	fetcher           DocumentFetcher
	ingester          Ingester
	defaultCollection string
}

// NewImporter creates a new Importer.
func NewImporter(fetcher DocumentFetcher, ingester Ingester, defaultCollection string) *Importer {
	return &Importer{
		fetcher:           fetcher,
		ingester:          ingester,
		defaultCollection: defaultCollection,
	}
}

// Import validates the request, fetches documents and ingests them in one batch.
func (i *Importer) Import(ctx context.Context, req ImportRequest) (ImportResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(req.AccessToken) == "" {
		return ImportResult{}, &service.ValidationError{Field: "access_token", Message: "cannot be empty"}
	}
	maxFiles := DefaultMaxFiles
	if req.MaxFiles != nil {
		maxFiles = *req.MaxFiles
	}
	if maxFiles <= 0 || maxFiles > MaxFilesLimit {
		return ImportResult{}, &service.ValidationError{
			Field:   "max_files",
			Message: fmt.Sprintf("must be between 1 and %d", MaxFilesLimit),
		}
	}

	fetched, err := i.fetcher.Fetch(ctx, req.AccessToken, maxFiles, req.Query)
	if err != nil {
		logger.ErrorContext(ctx, "drive fetch failed", "error", err)
		return ImportResult{}, err
	}

	if len(fetched.Documents) == 0 {
		logger.InfoContext(ctx, "drive import found no text documents", "skipped", fetched.Skipped)
		return ImportResult{
			SkippedCount:   fetched.Skipped,
			CollectionName: service.ResolveCollection(req.CollectionName, i.defaultCollection),
		}, nil
	}

	res, err := i.ingester.Ingest(ctx, indexer.Request{
		CollectionName: req.CollectionName,
		Documents:      fetched.Documents,
	})
	if err != nil {
		return ImportResult{}, err
	}

	return ImportResult{
		IngestedCount:  res.IngestedCount,
		SkippedCount:   fetched.Skipped,
		CollectionName: res.CollectionName,
	}, nil
}
