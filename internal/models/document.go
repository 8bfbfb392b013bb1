package models

// Metadata keys carried by every document, chunk and index entry.
const (
	MetaSource     = "source"
	MetaIngestedAt = "ingested_at"
)

// Document is the text extracted from a single uploaded file, together with
// its provenance metadata. Documents are created once at extraction time and
// never modified afterwards.
type Document struct {
	Content  string
	Metadata map[string]string
}

// Source returns the originating filename, or "" when the metadata lacks one.
func (d Document) Source() string {
	return d.Metadata[MetaSource]
}

// Chunk is a bounded window of a document's text. It carries a copy of the
// parent document's metadata so that every stored entry remains traceable to
// its source file.
type Chunk struct {
	Content  string
	Metadata map[string]string
}

// Entry is a chunk plus its embedding vector, as persisted in the index.
type Entry struct {
	ID        string
	Content   string
	Metadata  map[string]string
	Embedding []float32
}

// Match is an index entry returned from a similarity search. Score is the
// cosine similarity to the query vector, higher is more relevant. The stored
// embedding is included so callers can re-rank (e.g. by marginal relevance).
type Match struct {
	Entry
	Score float32
}

// CatalogRecord is one row of the uploaded-files listing, derived from index
// metadata: one record per distinct source filename.
type CatalogRecord struct {
	File       string `json:"file"`
	UploadDate string `json:"upload_date"`
}

// Exchange pairs a question with its synthesized answer. Sources lists the
// distinct filenames of the chunks that were retrieved for the answer.
type Exchange struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Sources  []string `json:"sources,omitempty"`
}
