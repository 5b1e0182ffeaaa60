// Package pipeline drives the crawl: fetch markup, extract the readable
// body, persist the page, chunk it, embed the chunks and upsert them into
// the vector store. URLs are processed strictly in order; a failure on one
// URL is counted and the run moves on.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sitekb/internal/extract"
	"sitekb/internal/page"
	"sitekb/internal/text"
)

type Extractor interface {
	Extract(rawHTML string, capturedAt time.Time) extract.Result
}

type Config struct {
	BatchSize    int
	CrawlDelay   time.Duration
	FetchTimeout time.Duration
	EmbedTimeout time.Duration
	ClearFirst   bool
}

// Summary is what a run reports when it finishes.
type Summary struct {
	URLs       int
	Pages      int
	Chunks     int
	Tokens     int
	Errors     int
	Elapsed    time.Duration
	StoreCount int
}

type Ingestor struct {
	cfg       Config
	fetcher   Fetcher
	extractor Extractor
	chunker   text.Chunker
	embedder  Embedder
	pages     PageStore
	chunks    ChunkStore

	sleep func(time.Duration)
	now   func() time.Time
}

func NewIngestor(cfg Config, fetcher Fetcher, extractor Extractor, chunker text.Chunker, embedder Embedder, pages PageStore, chunks ChunkStore) *Ingestor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Ingestor{
		cfg:       cfg,
		fetcher:   fetcher,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		pages:     pages,
		chunks:    chunks,
		sleep:     time.Sleep,
		now:       time.Now,
	}
}

// Run ingests urls one by one and returns the run summary. Per-URL and
// per-batch errors are logged and counted, never fatal; only a store-level
// failure outside the per-URL loop aborts the run.
func (i *Ingestor) Run(ctx context.Context, urls []string) (Summary, error) {
	start := i.now()
	summary := Summary{URLs: len(urls)}

	if i.cfg.ClearFirst {
		if err := i.chunks.Clear(ctx); err != nil {
			return summary, fmt.Errorf("clear chunk store: %w", err)
		}
		slog.InfoContext(ctx, "chunk store cleared")
	}

	for n, url := range urls {
		chunks, tokens, batchErrs, err := i.ingestURL(ctx, url)
		if err != nil {
			summary.Errors++
			slog.ErrorContext(ctx, "url ingest failed", "url", url, "error", err)
		} else {
			summary.Pages++
			summary.Chunks += chunks
			summary.Tokens += tokens
			summary.Errors += batchErrs
			slog.InfoContext(ctx, "url ingested", "url", url, "chunks", chunks, "tokens", tokens, "failed_batches", batchErrs)
		}

		if i.cfg.CrawlDelay > 0 && n < len(urls)-1 {
			i.sleep(i.cfg.CrawlDelay)
		}
	}

	summary.Elapsed = i.now().Sub(start)
	if count, err := i.chunks.Count(ctx); err != nil {
		slog.WarnContext(ctx, "chunk store count unavailable", "error", err)
	} else {
		summary.StoreCount = count
	}
	return summary, nil
}

func (i *Ingestor) ingestURL(ctx context.Context, url string) (chunkCount, tokenCount, batchErrors int, err error) {
	fetchCtx, cancel := context.WithTimeout(ctx, i.cfg.FetchTimeout)
	defer cancel()

	raw, err := i.fetcher.Fetch(fetchCtx, url)
	if err != nil {
		return 0, 0, 0, err
	}

	res := i.extractor.Extract(raw, i.now().UTC())
	if err := i.pages.Upsert(ctx, page.Page{
		URL:       url,
		Title:     res.Title,
		Markdown:  res.Markdown,
		CrawledAt: res.CrawledAt.Unix(),
	}); err != nil {
		return 0, 0, 0, fmt.Errorf("upsert page: %w", err)
	}

	chunks := i.chunker.Chunk(res.Markdown)

	// Drop whatever the previous crawl stored before writing the new set,
	// so a page that shrank leaves no stale tail chunks behind.
	if err := i.chunks.DeleteByURL(ctx, url); err != nil {
		return 0, 0, 0, fmt.Errorf("delete stale chunks: %w", err)
	}

	// A failed batch is counted and skipped; the remaining batches of the
	// page still embed and persist. Indexes are offset-based, so surviving
	// batches keep their keys.
	for offset := 0; offset < len(chunks); offset += i.cfg.BatchSize {
		end := offset + i.cfg.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[offset:end]

		texts := make([]string, len(batch))
		for j, c := range batch {
			texts[j] = c.Content
		}

		embedCtx, cancel := context.WithTimeout(ctx, i.cfg.EmbedTimeout)
		vectors, err := i.embedder.EmbedBatch(embedCtx, texts)
		cancel()
		if err != nil {
			batchErrors++
			slog.ErrorContext(ctx, "embed batch failed", "url", url, "offset", offset, "error", err)
			continue
		}
		if len(vectors) != len(batch) {
			batchErrors++
			slog.ErrorContext(ctx, "embed batch mismatched", "url", url, "offset", offset, "vectors", len(vectors), "chunks", len(batch))
			continue
		}

		rows := make([]ChunkRow, len(batch))
		batchTokens := 0
		for j, c := range batch {
			rows[j] = ChunkRow{
				URL:        url,
				ChunkIndex: offset + j,
				Content:    c.Content,
				TokenCount: c.TokenCount,
				Embedding:  vectors[j],
			}
			batchTokens += c.TokenCount
		}
		if err := i.chunks.UpsertChunks(ctx, rows); err != nil {
			batchErrors++
			slog.ErrorContext(ctx, "upsert chunk batch failed", "url", url, "offset", offset, "error", err)
			continue
		}
		chunkCount += len(batch)
		tokenCount += batchTokens
	}

	return chunkCount, tokenCount, batchErrors, nil
}
