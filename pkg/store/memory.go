package store

import (
	"context"
	"sort"
	"sync"

	"github.com/askdocs/askdocs/internal/models"
)

// MemoryStore is a brute-force cosine-similarity store. It backs tests and
// database-less runs; the durable backend is VectorStore.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []models.Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Add(ctx context.Context, entries []models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, vector []float32, k int, filter map[string]string) ([]models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []models.Match
	for _, entry := range s.entries {
		if !matchesFilter(entry.Metadata, filter) {
			continue
		}
		matches = append(matches, models.Match{
			Entry: entry,
			Score: cosineSimilarity(vector, entry.Embedding),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

func (s *MemoryStore) Metadata(ctx context.Context) ([]map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metadatas := make([]map[string]string, 0, len(s.entries))
	for _, entry := range s.entries {
		metadata := make(map[string]string, len(entry.Metadata))
		for k, v := range entry.Metadata {
			metadata[k] = v
		}
		metadatas = append(metadatas, metadata)
	}
	return metadatas, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return nil
}

func (s *MemoryStore) Close() {}

func matchesFilter(metadata, filter map[string]string) bool {
	for k, want := range filter {
		if metadata[k] != want {
			return false
		}
	}
	return true
}
