package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/fabfab/policy-rag/embeddings"
)

type memoryEntry struct {
	record Record
	vector []float32
}

// MemoryStore is a brute-force in-memory Store, used in tests and for
// running without Postgres. Distances are Euclidean to match the pgvector
// `<->` ordering.
type MemoryStore struct {
	mu          sync.RWMutex
	embedder    embeddings.Embedder
	collections map[string]map[string]memoryEntry
}

func NewMemoryStore(embedder embeddings.Embedder) *MemoryStore {
	return &MemoryStore{
		embedder:    embedder,
		collections: make(map[string]map[string]memoryEntry),
	}
}

func (s *MemoryStore) Upsert(ctx context.Context, collection string, records []Record) error {
	if s.embedder == nil {
		return fmt.Errorf("embedder is not configured")
	}
	if collection == "" {
		return fmt.Errorf("collection name is empty")
	}
	if len(records) == 0 {
		return nil
	}

	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = rec.Text
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}
	if len(vectors) != len(records) {
		return fmt.Errorf("embedding count mismatch: have %d records, %d vectors", len(records), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entries, ok := s.collections[collection]
	if !ok {
		entries = make(map[string]memoryEntry, len(records))
		s.collections[collection] = entries
	}
	for i, rec := range records {
		entries[rec.ID] = memoryEntry{record: rec, vector: vectors[i]}
	}
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, collection string, queryTexts []string, k int) ([][]SearchHit, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("embedder is not configured")
	}
	if len(queryTexts) == 0 {
		return nil, nil
	}
	if k <= 0 {
		k = 3
	}

	vectors, err := s.embedder.Embed(ctx, queryTexts)
	if err != nil {
		return nil, fmt.Errorf("embed queries: %w", err)
	}
	if len(vectors) != len(queryTexts) {
		return nil, fmt.Errorf("embedding count mismatch: have %d queries, %d vectors", len(queryTexts), len(vectors))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.collections[collection]

	results := make([][]SearchHit, len(queryTexts))
	for i := range queryTexts {
		results[i] = nearest(entries, vectors[i], k)
	}
	return results, nil
}

func (s *MemoryStore) DeleteCollection(ctx context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, collection)
	return nil
}

// Count reports how many records a collection holds.
func (s *MemoryStore) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

func nearest(entries map[string]memoryEntry, vector []float32, k int) []SearchHit {
	hits := make([]SearchHit, 0, len(entries))
	for _, entry := range entries {
		hits = append(hits, SearchHit{
			Text:     entry.record.Text,
			Metadata: entry.record.Metadata,
			Distance: euclidean(entry.vector, vector),
		})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

func euclidean(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

var _ Store = (*MemoryStore)(nil)
