// Package retrieval answers similarity queries against the chunk store.
package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var ErrEmptyQuery = errors.New("retrieval: empty query")

// Result is one ranked chunk. Score is cosine similarity in [-1, 1];
// higher is closer.
type Result struct {
	URL        string  `json:"url"`
	ChunkIndex int     `json:"chunkIndex"`
	Content    string  `json:"content"`
	Score      float32 `json:"score"`
}

type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type VectorStore interface {
	Query(ctx context.Context, vector []float32, limit int) ([]Result, error)
}

const DefaultTopK = 5

type Service struct {
	embedder Embedder
	store    VectorStore
	logger   *QueryLogger
}

func NewService(e Embedder, s VectorStore, l *QueryLogger) *Service {
	return &Service{embedder: e, store: s, logger: l}
}

// Search embeds the query text with the same model used at ingest time and
// returns the topK nearest chunks, best match first.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	start := time.Now()

	vectors, err := s.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, errors.New("retrieval: embedder returned wrong vector count for query")
	}

	results, err := s.store.Query(ctx, vectors[0], topK)
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Log(QueryLogEntry{
			Query:      query,
			NumResults: len(results),
			Duration:   time.Since(start),
		})
	}
	slog.InfoContext(ctx, "query answered", "results", len(results), "latency_ms", time.Since(start).Milliseconds())
	return results, nil
}
