// Package memory is an in-process chunk store used by tests and by
// STORE_BACKEND=memory runs where no Weaviate instance is available.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"sitekb/internal/pipeline"
	"sitekb/internal/retrieval"
	"sitekb/internal/vector"
)

type Store struct {
	mu    sync.RWMutex
	rows  map[string]pipeline.ChunkRow
	byURL map[string][]string
}

func NewStore() *Store {
	return &Store{
		rows:  make(map[string]pipeline.ChunkRow),
		byURL: make(map[string][]string),
	}
}

func key(url string, chunkIndex int) string {
	return url + "#" + strconv.Itoa(chunkIndex)
}

func (s *Store) UpsertChunks(ctx context.Context, rows []pipeline.ChunkRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		k := key(row.URL, row.ChunkIndex)
		if _, exists := s.rows[k]; !exists {
			s.byURL[row.URL] = append(s.byURL[row.URL], k)
		}
		s.rows[k] = row
	}
	return nil
}

func (s *Store) DeleteByURL(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.byURL[url] {
		delete(s.rows, k)
	}
	delete(s.byURL, url)
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = make(map[string]pipeline.ChunkRow)
	s.byURL = make(map[string][]string)
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows), nil
}

// Query ranks every stored chunk by cosine similarity to queryVector and
// returns the top limit, best match first. Brute force is fine at the
// scale a single site produces.
func (s *Store) Query(ctx context.Context, queryVector []float32, limit int) ([]retrieval.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]retrieval.Result, 0, len(s.rows))
	for _, row := range s.rows {
		sim, err := vector.CosineSimilarity(queryVector, row.Embedding)
		if err != nil {
			// Dimension mismatch or degenerate vector, skip the row.
			continue
		}
		results = append(results, retrieval.Result{
			URL:        row.URL,
			ChunkIndex: row.ChunkIndex,
			Content:    row.Content,
			Score:      float32(sim),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
