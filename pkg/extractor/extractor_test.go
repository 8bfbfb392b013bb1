package extractor_test

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdocs/askdocs/internal/models"
	"github.com/askdocs/askdocs/pkg/extractor"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeDOCX(t *testing.T, dir, name string, paragraphs []string) string {
	t.Helper()
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	doc, err := w.Create("word/document.xml")
	require.NoError(t, err)

	body := `<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`
	for _, p := range paragraphs {
		body += `<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`
	}
	body += `</w:body></w:document>`

	_, err = doc.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return path
}

func TestExtractFiles_PlainText(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", "hello world")

	e := extractor.New()
	result, err := e.ExtractFiles(context.Background(), []string{path})

	require.NoError(t, err)
	require.Len(t, result.Documents, 1)
	assert.Equal(t, "hello world", result.Documents[0].Content)
	assert.Equal(t, "notes.txt", result.Documents[0].Source())
}

func TestExtractFiles_MetadataStamped(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "stamp.txt", "content")

	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	e := extractor.NewWithConfig(extractor.ExtractorConfig{
		Now: func() time.Time { return fixed },
	})

	result, err := e.ExtractFiles(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, result.Documents, 1)

	metadata := result.Documents[0].Metadata
	assert.Equal(t, "stamp.txt", metadata[models.MetaSource])
	assert.Equal(t, fixed.Format(time.RFC3339), metadata[models.MetaIngestedAt])
}

func TestExtractFiles_UnsupportedSkipped(t *testing.T) {
	dir := t.TempDir()
	supported := writeFile(t, dir, "keep.txt", "kept")
	unsupported := writeFile(t, dir, "image.png", "\x89PNG")

	e := extractor.New()
	result, err := e.ExtractFiles(context.Background(), []string{supported, unsupported})

	require.NoError(t, err)
	require.Len(t, result.Documents, 1)
	assert.Equal(t, "keep.txt", result.Documents[0].Source())
	assert.Empty(t, result.Failed)
}

func TestExtractFiles_MalformedFileIsolated(t *testing.T) {
	dir := t.TempDir()
	broken := writeFile(t, dir, "broken.pdf", "not a pdf at all")
	good := writeFile(t, dir, "good.txt", "fine")

	e := extractor.New()
	result, err := e.ExtractFiles(context.Background(), []string{broken, good})

	require.NoError(t, err)
	require.Len(t, result.Documents, 1)
	assert.Equal(t, "good.txt", result.Documents[0].Source())
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "broken.pdf", result.Failed[0].File)
	assert.Error(t, result.Failed[0].Err)
}

func TestExtractFiles_DOCX(t *testing.T) {
	dir := t.TempDir()
	path := writeDOCX(t, dir, "report.docx", []string{"First paragraph.", "Second paragraph."})

	e := extractor.New()
	result, err := e.ExtractFiles(context.Background(), []string{path})

	require.NoError(t, err)
	require.Len(t, result.Documents, 1)
	assert.Contains(t, result.Documents[0].Content, "First paragraph.")
	assert.Contains(t, result.Documents[0].Content, "Second paragraph.")
}

func TestExtractFiles_HTML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "page.html",
		`<html><head><script>var x = 1;</script></head><body><p>Visible   text</p></body></html>`)

	e := extractor.New()
	result, err := e.ExtractFiles(context.Background(), []string{path})

	require.NoError(t, err)
	require.Len(t, result.Documents, 1)
	assert.Equal(t, "Visible text", result.Documents[0].Content)
	assert.NotContains(t, result.Documents[0].Content, "var x")
}

func TestExtractFolder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "alpha")
	writeFile(t, dir, "b.txt", "beta")
	writeFile(t, dir, "skip.bin", "binary")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	e := extractor.New()
	result, err := e.ExtractFolder(context.Background(), dir)

	require.NoError(t, err)
	assert.Len(t, result.Documents, 2)
}

func TestExtractFolder_MissingDir(t *testing.T) {
	e := extractor.New()
	_, err := e.ExtractFolder(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestExtractFiles_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.txt", "alpha")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := extractor.New()
	_, err := e.ExtractFiles(ctx, []string{path})
	assert.ErrorIs(t, err, context.Canceled)
}
