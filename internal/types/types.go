package types

import (
	"context"

	"github.com/askdocs/askdocs/internal/models"
)

// Embedder converts text into numeric vectors. The same embedder must be
// used at ingestion and at query time so the vectors live in one space.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits extracted documents into index-sized chunks.
type Chunker interface {
	Process(docs []models.Document) []models.Chunk
}

// VectorStore persists embedded chunks in a single named collection and
// supports similarity search over them.
//
// Add appends entries; it never overwrites existing ones. Search returns the
// k nearest entries, optionally restricted to entries whose metadata matches
// every key of filter exactly; a filter matching nothing yields an empty
// result, not an error. Metadata returns the metadata of every stored entry.
// Clear irreversibly empties the collection; the store remains usable.
type VectorStore interface {
	Add(ctx context.Context, entries []models.Entry) error
	Search(ctx context.Context, vector []float32, k int, filter map[string]string) ([]models.Match, error)
	Metadata(ctx context.Context) ([]map[string]string, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	Close()
}

// Synthesizer turns a question and retrieved chunks into an answer string.
// With zero chunks it must return a fixed insufficient-context answer rather
// than calling a model.
type Synthesizer interface {
	Answer(ctx context.Context, question string, docs []models.Chunk) (string, error)
}
