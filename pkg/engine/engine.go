// Package engine wires the extraction, chunking, embedding, retrieval and
// synthesis components into the ingestion and question-answering flows.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/askdocs/askdocs/internal/models"
	"github.com/askdocs/askdocs/internal/types"
	"github.com/askdocs/askdocs/pkg/extractor"
	"github.com/askdocs/askdocs/pkg/store"
)

type Config struct {
	TopK      int
	FetchK    int     // candidates fetched before MMR selection
	MMRLambda float32 // 1 = pure relevance, 0 = pure diversity
	UploadDir string  // raw upload folder emptied by Clear; "" to skip
}

// Engine is the long-lived application core. It holds one store handle for
// its whole lifetime and passes it to every operation, rather than opening
// a fresh connection per call.
type Engine struct {
	config      Config
	extractor   *extractor.Extractor
	chunker     types.Chunker
	embedder    types.Embedder
	store       types.VectorStore
	synthesizer types.Synthesizer
}

func New(config Config, ext *extractor.Extractor, chunker types.Chunker, emb types.Embedder, vs types.VectorStore, synth types.Synthesizer) *Engine {
	if config.TopK <= 0 {
		config.TopK = 8
	}
	if config.FetchK < config.TopK {
		config.FetchK = 4 * config.TopK
	}
	if config.MMRLambda <= 0 || config.MMRLambda > 1 {
		config.MMRLambda = 0.5
	}

	return &Engine{
		config:      config,
		extractor:   ext,
		chunker:     chunker,
		embedder:    emb,
		store:       vs,
		synthesizer: synth,
	}
}

// IngestReport summarizes one ingestion run.
type IngestReport struct {
	Files  []string              `json:"files"`
	Chunks int                   `json:"chunks"`
	Failed []extractor.FileError `json:"-"`
}

// IngestFolder extracts, chunks, embeds and stores every supported file in
// dir. Files that fail to extract are reported in the result and do not
// abort the rest of the batch.
func (e *Engine) IngestFolder(ctx context.Context, dir string) (*IngestReport, error) {
	result, err := e.extractor.ExtractFolder(ctx, dir)
	if err != nil {
		return nil, err
	}
	return e.ingest(ctx, result)
}

// IngestFiles ingests the given files only.
func (e *Engine) IngestFiles(ctx context.Context, paths []string) (*IngestReport, error) {
	result, err := e.extractor.ExtractFiles(ctx, paths)
	if err != nil {
		return nil, err
	}
	return e.ingest(ctx, result)
}

func (e *Engine) ingest(ctx context.Context, result *extractor.Result) (*IngestReport, error) {
	chunks := e.chunker.Process(result.Documents)
	if err := e.Index(ctx, chunks); err != nil {
		return nil, err
	}

	report := &IngestReport{
		Chunks: len(chunks),
		Failed: result.Failed,
	}
	for _, doc := range result.Documents {
		report.Files = append(report.Files, doc.Source())
	}
	return report, nil
}

// Index embeds the chunks and appends them to the store. An embedding
// provider failure fails the whole call; entries already written stay
// written, and re-ingesting after a failed run simply accumulates
// duplicates.
func (e *Engine) Index(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	entries := make([]models.Entry, len(chunks))
	for i, chunk := range chunks {
		entries[i] = models.Entry{
			ID:        uuid.NewString(),
			Content:   chunk.Content,
			Metadata:  chunk.Metadata,
			Embedding: vectors[i],
		}
	}

	return e.store.Add(ctx, entries)
}

// Retrieve returns the chunks most relevant to the question. Without a
// source filter, FetchK candidates are fetched and TopK of them selected by
// maximal marginal relevance so broad questions get diverse coverage. With
// a filter, retrieval is a plain top-K restricted to that source file; a
// filter matching nothing yields zero chunks.
func (e *Engine) Retrieve(ctx context.Context, question, sourceFile string) ([]models.Match, error) {
	vector, err := e.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, err
	}

	if sourceFile != "" {
		return e.store.Search(ctx, vector, e.config.TopK, store.Filter{models.MetaSource: sourceFile})
	}

	candidates, err := e.store.Search(ctx, vector, e.config.FetchK, nil)
	if err != nil {
		return nil, err
	}
	return store.MaximalMarginalRelevance(vector, candidates, e.config.TopK, e.config.MMRLambda), nil
}

// Ask answers each question in order, independently: retrieve, synthesize,
// fall back on a vague answer. The response order always matches the input
// order. A provider failure fails the whole call so callers can tell it
// apart from an empty-but-successful result.
func (e *Engine) Ask(ctx context.Context, questions []string, sourceFile string) ([]models.Exchange, error) {
	exchanges := make([]models.Exchange, 0, len(questions))

	for _, question := range questions {
		matches, err := e.Retrieve(ctx, question, sourceFile)
		if err != nil {
			return nil, fmt.Errorf("failed to retrieve context for %q: %w", question, err)
		}

		chunks := make([]models.Chunk, len(matches))
		for i, m := range matches {
			chunks[i] = models.Chunk{Content: m.Content, Metadata: m.Metadata}
		}

		answer, err := e.synthesizer.Answer(ctx, question, chunks)
		if err != nil {
			return nil, fmt.Errorf("failed to answer %q: %w", question, err)
		}

		exchanges = append(exchanges, models.Exchange{
			Question: question,
			Answer:   answer,
			Sources:  distinctSources(matches),
		})
	}

	return exchanges, nil
}

// Files lists the distinct ingested source files with their upload dates,
// derived from a metadata scan of the index. Entries without a source are
// grouped under "Unknown". When a file appears with several ingestion
// timestamps the latest one wins. An empty index yields an empty list.
func (e *Engine) Files(ctx context.Context) ([]models.CatalogRecord, error) {
	metadatas, err := e.store.Metadata(ctx)
	if err != nil {
		return nil, err
	}

	latest := make(map[string]string)
	for _, metadata := range metadatas {
		file := metadata[models.MetaSource]
		if file == "" {
			file = "Unknown"
		}
		date := metadata[models.MetaIngestedAt]
		if current, ok := latest[file]; !ok || date > current {
			latest[file] = date
		}
	}

	records := make([]models.CatalogRecord, 0, len(latest))
	for file, date := range latest {
		if date == "" {
			date = "Unknown"
		}
		records = append(records, models.CatalogRecord{File: file, UploadDate: date})
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].File < records[j].File
	})

	return records, nil
}

// Clear irreversibly wipes the index and removes any raw files from the
// upload folder. It returns the number of index entries destroyed.
func (e *Engine) Clear(ctx context.Context) (int, error) {
	count, err := e.store.Count(ctx)
	if err != nil {
		return 0, err
	}

	if err := e.store.Clear(ctx); err != nil {
		return 0, err
	}

	if e.config.UploadDir != "" {
		entries, err := os.ReadDir(e.config.UploadDir)
		if err != nil && !os.IsNotExist(err) {
			return count, fmt.Errorf("failed to read upload folder: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if err := os.Remove(filepath.Join(e.config.UploadDir, entry.Name())); err != nil {
				return count, fmt.Errorf("failed to remove uploaded file: %w", err)
			}
		}
	}

	return count, nil
}

func distinctSources(matches []models.Match) []string {
	var sources []string
	seen := make(map[string]bool)
	for _, m := range matches {
		source := m.Metadata[models.MetaSource]
		if source == "" || seen[source] {
			continue
		}
		seen[source] = true
		sources = append(sources, source)
	}
	return sources
}
