// Package processor splits extracted documents into overlapping fixed-size
// chunks suitable for embedding.
package processor

import (
	"github.com/askdocs/askdocs/internal/models"
)

type ProcessorConfig struct {
	ChunkSize    int // maximum chunk length in characters
	ChunkOverlap int // characters shared with the preceding chunk
}

type Processor struct {
	config ProcessorConfig
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.ChunkSize <= 0 {
		config.ChunkSize = 1000
	}
	if config.ChunkOverlap < 0 {
		config.ChunkOverlap = 0
	}
	// Invariant: overlap < size, otherwise the split would never advance.
	if config.ChunkOverlap >= config.ChunkSize {
		config.ChunkOverlap = config.ChunkSize - 1
	}

	return Processor{
		config: config,
	}
}

// Process splits each document into chunks. Every chunk carries a copy of
// its parent document's metadata, unmodified. Splitting is deterministic:
// the same input and configuration always produce the same chunk sequence.
func (p Processor) Process(docs []models.Document) []models.Chunk {
	var chunks []models.Chunk

	for _, doc := range docs {
		for _, piece := range p.splitText(doc.Content) {
			chunks = append(chunks, models.Chunk{
				Content:  piece,
				Metadata: copyMetadata(doc.Metadata),
			})
		}
	}

	return chunks
}

// splitText windows the text into pieces of at most ChunkSize characters,
// each starting ChunkSize-ChunkOverlap characters after the previous one.
// No character of the input is dropped. Text shorter than ChunkSize yields
// exactly one piece; empty text yields none.
func (p Processor) splitText(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= p.config.ChunkSize {
		return []string{text}
	}

	step := p.config.ChunkSize - p.config.ChunkOverlap
	var pieces []string
	for start := 0; start < len(runes); start += step {
		end := start + p.config.ChunkSize
		if end >= len(runes) {
			pieces = append(pieces, string(runes[start:]))
			break
		}
		pieces = append(pieces, string(runes[start:end]))
	}

	return pieces
}

func copyMetadata(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
