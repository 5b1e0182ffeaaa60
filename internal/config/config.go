package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"localhost"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"sitekb"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"sitekb"`

	WeaviateHost   string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`

	// StoreBackend selects where chunk vectors go: "weaviate" or "memory" (dry runs).
	StoreBackend string `envconfig:"STORE_BACKEND" default:"weaviate"`

	// EmbedProvider selects the embedding backend: "openai" or "gemini".
	EmbedProvider   string `envconfig:"EMBED_PROVIDER" default:"openai"`
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL   string `envconfig:"OPENAI_API_BASE" default:"https://api.openai.com/v1"`
	GeminiAPIKey    string `envconfig:"GEMINI_API_KEY"`
	EmbedModel      string `envconfig:"EMBED_MODEL" default:"text-embedding-3-small"`
	EmbedDimensions int    `envconfig:"EMBED_DIMENSIONS" default:"1536"`
	EmbedBatchSize  int    `envconfig:"EMBED_BATCH_SIZE" default:"100"`
	EmbedMaxRetries int    `envconfig:"EMBED_MAX_RETRIES" default:"3"`

	// Chunking. Target is where a chunk is flushed, Max is the hard cap.
	ChunkStrategy      string `envconfig:"CHUNK_STRATEGY" default:"paragraph"`
	ChunkTargetTokens  int    `envconfig:"CHUNK_TARGET_TOKENS" default:"400"`
	ChunkMaxTokens     int    `envconfig:"CHUNK_MAX_TOKENS" default:"500"`
	ChunkOverlapTokens int    `envconfig:"CHUNK_OVERLAP_TOKENS" default:"50"`

	// Extraction.
	SiteRoot        string   `envconfig:"SITE_ROOT"`
	ContentRootID   string   `envconfig:"CONTENT_ROOT_ID" default:"fsPageContent"`
	RemoveSelectors []string `envconfig:"REMOVE_SELECTORS" default:".fsNavigation,script,style,noscript"`

	// Crawl loop.
	URLFile      string        `envconfig:"URL_FILE" default:"urls.txt"`
	CrawlDelay   time.Duration `envconfig:"CRAWL_DELAY" default:"1s"`
	FetchTimeout time.Duration `envconfig:"FETCH_TIMEOUT" default:"30s"`
	EmbedTimeout time.Duration `envconfig:"EMBED_TIMEOUT" default:"60s"`
	ClearFirst   bool          `envconfig:"CLEAR_FIRST" default:"false"`

	MigrationPath string `envconfig:"MIGRATION_PATH" default:"file://migrations"`
	QueryLogPath  string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Env vars may also be set in the shell, so a missing .env is fine.
	_ = godotenv.Load(".env")

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.SiteRoot == "" {
		return fmt.Errorf("%w: SITE_ROOT", ErrMissingRequired)
	}

	switch c.EmbedProvider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY", ErrMissingRequired)
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY", ErrMissingRequired)
		}
	default:
		return fmt.Errorf("unknown EMBED_PROVIDER %q", c.EmbedProvider)
	}

	switch c.StoreBackend {
	case "weaviate":
		if c.WeaviateHost == "" {
			return fmt.Errorf("%w: WEAVIATE_HOST", ErrMissingRequired)
		}
		if c.DBHost == "" || c.DBUser == "" || c.DBName == "" {
			return fmt.Errorf("%w: DB_HOST/DB_USER/DB_NAME", ErrMissingRequired)
		}
	case "memory":
		// No external services needed.
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.ChunkMaxTokens < c.ChunkTargetTokens {
		return fmt.Errorf("CHUNK_MAX_TOKENS (%d) must be >= CHUNK_TARGET_TOKENS (%d)",
			c.ChunkMaxTokens, c.ChunkTargetTokens)
	}

	return nil
}
