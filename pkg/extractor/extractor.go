// Package extractor turns raw uploaded files into text documents tagged with
// provenance metadata. Supported formats are PDF, plain text, Word documents
// and HTML; anything else is silently skipped.
package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/askdocs/askdocs/internal/models"
)

type ExtractorConfig struct {
	// Now supplies ingestion timestamps. Defaults to time.Now.
	Now func() time.Time
}

type Extractor struct {
	now func() time.Time
}

func New() *Extractor {
	return NewWithConfig(ExtractorConfig{})
}

func NewWithConfig(config ExtractorConfig) *Extractor {
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Extractor{now: config.Now}
}

// FileError records a single file that failed to extract.
type FileError struct {
	File string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

// Result holds the documents extracted from a batch of files. Failed lists
// the files that could not be parsed; their failure never aborts the batch.
type Result struct {
	Documents []models.Document
	Failed    []FileError
}

// ExtractFolder extracts every supported file directly inside dir.
func (e *Extractor) ExtractFolder(ctx context.Context, dir string) (*Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read folder %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}

	return e.ExtractFiles(ctx, paths)
}

// ExtractFiles extracts the given files, producing one document per
// supported file. The document's metadata records the filename and the
// extraction time, so re-extracting the same file later yields a fresh
// timestamp.
func (e *Extractor) ExtractFiles(ctx context.Context, paths []string) (*Result, error) {
	result := &Result{}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, supported, err := e.extract(path)
		if !supported {
			continue
		}
		name := filepath.Base(path)
		if err != nil {
			result.Failed = append(result.Failed, FileError{File: name, Err: err})
			continue
		}

		// Zero extractable text is fine, the file just yields no chunks.
		result.Documents = append(result.Documents, models.Document{
			Content: text,
			Metadata: map[string]string{
				models.MetaSource:     name,
				models.MetaIngestedAt: e.now().Format(time.RFC3339),
			},
		})
	}

	return result, nil
}

func (e *Extractor) extract(path string) (text string, supported bool, err error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err = extractPDF(path)
	case ".txt":
		text, err = extractText(path)
	case ".docx", ".doc":
		text, err = extractDOCX(path)
	case ".html", ".htm":
		text, err = extractHTML(path)
	default:
		return "", false, nil
	}
	return text, true, err
}

func extractText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return string(data), nil
}
