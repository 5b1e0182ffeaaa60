package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	"sitekb/internal/adapter/gemini"
	"sitekb/internal/adapter/memory"
	"sitekb/internal/adapter/openai"
	wstore "sitekb/internal/adapter/weaviate"
	"sitekb/internal/config"
	"sitekb/internal/extract"
	"sitekb/internal/logger"
	"sitekb/internal/page"
	"sitekb/internal/pipeline"
	"sitekb/internal/retrieval"
	"sitekb/internal/text"
	"sitekb/internal/vector"
)

func main() {
	// Initialize structured logger
	base := slog.NewJSONHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(logger.NewContextHandler(base)))

	ctx := logger.WithRunID(context.Background(), uuid.NewString())

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if len(os.Args) > 1 && os.Args[1] == "search" {
		runSearch(ctx, cfg, strings.Join(os.Args[2:], " "))
		return
	}

	runIngest(ctx, cfg)
}

func runIngest(ctx context.Context, cfg *config.Config) {
	embedder, closeEmbedder := newEmbedder(ctx, cfg)
	defer closeEmbedder()

	chunker := newChunker(cfg)
	extractor := extract.New(cfg.SiteRoot, cfg.ContentRootID, cfg.RemoveSelectors)
	fetcher := pipeline.NewHTTPFetcher(cfg.FetchTimeout)

	var pages pipeline.PageStore
	var chunks pipeline.ChunkStore

	if cfg.StoreBackend == "memory" {
		pages = memory.NewPageStore()
		chunks = memory.NewStore()
	} else {
		db := openDB(cfg)
		defer db.Close()
		runMigrations(cfg, db)
		pages = page.NewPostgresRepo(db)
		chunks = wstore.NewStore(newWeaviateClient(ctx, cfg))
	}

	urls, err := pipeline.ReadURLList(cfg.URLFile)
	if err != nil {
		slog.ErrorContext(ctx, "failed to read url list", "error", err, "path", cfg.URLFile)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "starting ingest",
		"urls", len(urls),
		"store", cfg.StoreBackend,
		"provider", cfg.EmbedProvider,
		"strategy", cfg.ChunkStrategy)

	ing := pipeline.NewIngestor(pipeline.Config{
		BatchSize:    cfg.EmbedBatchSize,
		CrawlDelay:   cfg.CrawlDelay,
		FetchTimeout: cfg.FetchTimeout,
		EmbedTimeout: cfg.EmbedTimeout,
		ClearFirst:   cfg.ClearFirst,
	}, fetcher, extractor, chunker, embedder, pages, chunks)

	summary, err := ing.Run(ctx, urls)
	if err != nil {
		slog.ErrorContext(ctx, "ingest aborted", "error", err)
		os.Exit(1)
	}

	slog.InfoContext(ctx, "ingest finished",
		"urls", summary.URLs,
		"pages", summary.Pages,
		"chunks", summary.Chunks,
		"tokens", summary.Tokens,
		"errors", summary.Errors,
		"store_count", summary.StoreCount,
		"elapsed", summary.Elapsed.String())
}

func runSearch(ctx context.Context, cfg *config.Config, query string) {
	if query == "" {
		fmt.Fprintln(os.Stderr, "usage: sitekb search <query>")
		os.Exit(1)
	}

	embedder, closeEmbedder := newEmbedder(ctx, cfg)
	defer closeEmbedder()

	var store retrieval.VectorStore
	if cfg.StoreBackend == "memory" {
		store = memory.NewStore()
	} else {
		store = wstore.NewStore(newWeaviateClient(ctx, cfg))
	}

	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.WarnContext(ctx, "query log unavailable", "error", err, "path", cfg.QueryLogPath)
	}

	svc := retrieval.NewService(embedder, store, queryLogger)
	results, err := svc.Search(ctx, query, retrieval.DefaultTopK)
	if err != nil {
		slog.ErrorContext(ctx, "search failed", "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		slog.ErrorContext(ctx, "failed to encode results", "error", err)
		os.Exit(1)
	}
}

func newEmbedder(ctx context.Context, cfg *config.Config) (pipeline.Embedder, func()) {
	switch cfg.EmbedProvider {
	case "gemini":
		e, err := gemini.NewEmbedder(ctx, cfg.GeminiAPIKey)
		if err != nil {
			slog.ErrorContext(ctx, "failed to create gemini embedder", "error", err)
			os.Exit(1)
		}
		return e, func() { e.Close() }
	default:
		e, err := openai.NewEmbedder(openai.Config{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.EmbedModel,
			Dimensions: cfg.EmbedDimensions,
			Timeout:    cfg.EmbedTimeout,
			MaxRetries: cfg.EmbedMaxRetries,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to create openai embedder", "error", err)
			os.Exit(1)
		}
		return e, func() {}
	}
}

func newChunker(cfg *config.Config) text.Chunker {
	tokenizer, err := text.NewTiktokenTokenizer()
	if err != nil {
		slog.Error("failed to load tokenizer", "error", err)
		os.Exit(1)
	}
	chunker, err := text.NewChunker(cfg.ChunkStrategy, tokenizer, cfg.ChunkTargetTokens, cfg.ChunkMaxTokens, cfg.ChunkOverlapTokens)
	if err != nil {
		slog.Error("failed to create chunker", "error", err)
		os.Exit(1)
	}
	return chunker
}

func openDB(cfg *config.Config) *sql.DB {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPass, cfg.DBName)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("failed to open db connection", "error", err)
		os.Exit(1)
	}

	// Retry connection
	for i := 0; i < cfg.BootstrapRetryAttempts; i++ {
		if err := db.Ping(); err == nil {
			break
		}
		slog.Warn("failed to ping db, retrying...", "attempt", i+1, "max_attempts", cfg.BootstrapRetryAttempts)
		time.Sleep(time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second)
	}

	if err := db.Ping(); err != nil {
		slog.Error("failed to ping db after retries", "error", err)
		os.Exit(1)
	}
	return db
}

func runMigrations(cfg *config.Config, db *sql.DB) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		slog.Error("failed to create migration driver", "error", err)
		os.Exit(1)
	}

	m, err := migrate.NewWithDatabaseInstance(cfg.MigrationPath, "postgres", driver)
	if err != nil {
		slog.Error("failed to create migration instance", "error", err)
		os.Exit(1)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("migrations applied successfully")
}

func newWeaviateClient(ctx context.Context, cfg *config.Config) *weaviate.Client {
	wCfg := weaviate.Config{
		Host:   cfg.WeaviateHost,
		Scheme: cfg.WeaviateScheme,
	}
	wClient, err := weaviate.NewClient(wCfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create weaviate client", "error", err)
		os.Exit(1)
	}

	wAdapter := vector.NewWeaviateClientAdapter(wClient)

	// Retry Weaviate Schema Ensure
	for i := 0; i < cfg.BootstrapRetryAttempts; i++ {
		err := vector.EnsureSchema(ctx, wAdapter)
		if err == nil {
			slog.InfoContext(ctx, "weaviate schema ensured")
			return wClient
		}
		slog.WarnContext(ctx, "failed to ensure weaviate schema, retrying...", "attempt", i+1, "error", err)
		time.Sleep(time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second)
	}

	if err := vector.EnsureSchema(ctx, wAdapter); err != nil {
		slog.ErrorContext(ctx, "failed to ensure weaviate schema after retries", "error", err)
		os.Exit(1)
	}
	return wClient
}
