package pipeline

import (
	"context"

	"sitekb/internal/page"
)

// ChunkRow is one persisted chunk: content plus its embedding, keyed by
// (URL, ChunkIndex).
type ChunkRow struct {
	URL        string
	ChunkIndex int
	Content    string
	TokenCount int
	Embedding  []float32
}

// Fetcher retrieves raw page markup. The mechanism (plain HTTP, a headless
// browser, a recorded fixture) is a collaborator outside the pipeline.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ChunkStore is the external vector store. Upsert is insert-or-replace on
// (url, chunkIndex) and must be safe to repeat.
type ChunkStore interface {
	UpsertChunks(ctx context.Context, rows []ChunkRow) error
	DeleteByURL(ctx context.Context, url string) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

type PageStore interface {
	Upsert(ctx context.Context, p page.Page) error
}
