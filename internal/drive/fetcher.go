// Package drive imports Google Drive files as documents.
package drive

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"research-vectordb/internal/contextutil"
	"research-vectordb/internal/indexer"
	"research-vectordb/internal/service"
)

// DefaultQuery lists regular, non-trashed files that are not media or archives.
const DefaultQuery = "mimeType!='application/vnd.google-apps.folder' and " +
	"not mimeType contains 'image/' and " +
	"not mimeType contains 'video/' and " +
	"not mimeType contains 'audio/' and " +
	"not mimeType contains 'application/zip' and " +
	"not mimeType contains 'application/x-rar' and " +
	"not mimeType contains 'application/x-7z' and " +
	"trashed=false"

// Google Workspace MIME types and the formats they are exported as.
const (
	MimeTypeGoogleDoc    = "application/vnd.google-apps.document"
	MimeTypeGoogleSheet  = "application/vnd.google-apps.spreadsheet"
	MimeTypeGoogleSlides = "application/vnd.google-apps.presentation"

	ExportMimeText = "text/plain"
	ExportMimeCSV  = "text/csv"
)

// MaxDownloadSize caps the bytes read per file (5MB).
const MaxDownloadSize = 5 * 1024 * 1024

var exportTypes = map[string]string{
	MimeTypeGoogleDoc:    ExportMimeText,
	MimeTypeGoogleSheet:  ExportMimeCSV,
	MimeTypeGoogleSlides: ExportMimeText,
}

// ServiceFactory builds a Drive client for an OAuth access token.
type ServiceFactory func(ctx context.Context, accessToken string) (*drive.Service, error)

// NewDriveService creates a Drive client that authenticates with a static access token.
func NewDriveService(ctx context.Context, accessToken string) (*drive.Service, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	return drive.NewService(ctx, option.WithTokenSource(ts))
}

// Fetcher lists Drive files and turns their text content into documents.
type Fetcher struct {
	newService ServiceFactory
}

// NewFetcher creates a Fetcher. A nil factory uses NewDriveService.
func NewFetcher(factory ServiceFactory) *Fetcher {
	if factory == nil {
		factory = NewDriveService
	}
	return &Fetcher{newService: factory}
}

// FetchResult holds the documents extracted from Drive.
type FetchResult struct {
	Documents []indexer.Document
	// Skipped counts files that produced no text or could not be downloaded.
	Skipped int
}

// Fetch lists up to maxFiles files matching query (DefaultQuery when empty)
// and downloads or exports each one. Listing failures are returned wrapped in
// service.ErrUpstream; a file that fails to download is skipped.
func (f *Fetcher) Fetch(ctx context.Context, accessToken string, maxFiles int, query string) (FetchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if query == "" {
		query = DefaultQuery
	}

	svc, err := f.newService(ctx, accessToken)
	if err != nil {
		return FetchResult{}, fmt.Errorf("%w: create drive client: %w", service.ErrUpstream, err)
	}

	files, err := listFiles(ctx, svc, maxFiles, query)
	if err != nil {
		return FetchResult{}, fmt.Errorf("%w: list drive files: %w", service.ErrUpstream, err)
	}

	var result FetchResult
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return FetchResult{}, err
		}

		raw, err := download(ctx, svc, file)
		if err != nil {
			logger.WarnContext(ctx, "skipping drive file", "file_id", file.Id, "name", file.Name, "error", err)
			result.Skipped++
			continue
		}

		text := cleanText(raw)
		if text == "" {
			result.Skipped++
			continue
		}

		result.Documents = append(result.Documents, indexer.Document{
			ID:   file.Id,
			Text: text,
			Metadata: map[string]any{
				"name":     file.Name,
				"mimeType": file.MimeType,
			},
		})
	}

	logger.InfoContext(ctx, "fetched drive files", "listed", len(files), "documents", len(result.Documents), "skipped", result.Skipped)
	return result, nil
}

// listFiles pages through the file list until maxFiles files are collected.
func listFiles(ctx context.Context, svc *drive.Service, maxFiles int, query string) ([]*drive.File, error) {
	var files []*drive.File
	pageToken := ""
	for len(files) < maxFiles {
		call := svc.Files.List().
			Q(query).
			PageSize(int64(maxFiles - len(files))).
			Fields("nextPageToken, files(id, name, mimeType)").
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return nil, err
		}
		files = append(files, page.Files...)

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	if len(files) > maxFiles {
		files = files[:maxFiles]
	}
	return files, nil
}

// download exports Workspace files and fetches everything else as-is.
func download(ctx context.Context, svc *drive.Service, file *drive.File) ([]byte, error) {
	var body io.ReadCloser
	if exportMime, ok := exportTypes[file.MimeType]; ok {
		resp, err := svc.Files.Export(file.Id, exportMime).Context(ctx).Download()
		if err != nil {
			return nil, fmt.Errorf("export file: %w", err)
		}
		body = resp.Body
	} else {
		resp, err := svc.Files.Get(file.Id).Context(ctx).Download()
		if err != nil {
			return nil, fmt.Errorf("download file: %w", err)
		}
		body = resp.Body
	}
	defer func() {
		_ = body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(body, MaxDownloadSize))
	if err != nil {
		return nil, fmt.Errorf("read file content: %w", err)
	}
	return data, nil
}

// cleanText decodes bytes as UTF-8, dropping invalid sequences, and trims whitespace.
func cleanText(raw []byte) string {
	return strings.TrimSpace(strings.ToValidUTF8(string(raw), ""))
}
