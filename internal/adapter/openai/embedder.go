// Package openai embeds chunk batches through an OpenAI-compatible
// /embeddings endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultModel      = "text-embedding-3-small"
	DefaultTimeout    = 60 * time.Second
	DefaultMaxRetries = 3
)

// Failure classes for one batch call. Rate limits and server errors are
// retried with exponential backoff; anything else is permanent.
var (
	ErrRateLimited = errors.New("embedding API rate limited")
	ErrServer      = errors.New("embedding API server error")
	ErrBadRequest  = errors.New("embedding API rejected request")
)

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// Dimensions asks the API to truncate vectors to this size; zero keeps
	// the model's native size.
	Dimensions int
	Timeout    time.Duration
	// MaxRetries caps retry attempts after the initial call. Zero means the
	// default; pass a negative value to disable retries entirely.
	MaxRetries int
}

type Embedder struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	maxRetries int

	// sleep is swapped out in tests to observe backoff without waiting.
	sleep func(time.Duration)
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

func NewEmbedder(cfg Config) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	} else if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	return &Embedder{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		maxRetries: cfg.MaxRetries,
		sleep:      time.Sleep,
	}, nil
}

// EmbedBatch returns one vector per input text, in input order. Rate-limited
// and 5xx responses are retried up to the configured ceiling, waiting
// 2^attempt seconds before retry attempt n. Other failures abort immediately.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(1<<attempt) * time.Second
			slog.WarnContext(ctx, "retrying embedding batch", "attempt", attempt, "wait", wait, "error", lastErr)
			e.sleep(wait)
		}

		vectors, err := e.call(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err

		if !errors.Is(err, ErrRateLimited) && !errors.Is(err, ErrServer) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("retries exhausted: %w", lastErr)
}

func (e *Embedder) call(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody, err := json.Marshal(embeddingRequest{Model: e.model, Input: texts, Dimensions: e.dimensions})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServer, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, truncate(body))
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d: %s", ErrServer, resp.StatusCode, truncate(body))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d: %s", ErrBadRequest, resp.StatusCode, truncate(body))
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrBadRequest, len(parsed.Data), len(texts))
	}

	// Restore input order by index; the API is allowed to reorder data.
	vectors := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", ErrBadRequest, d.Index)
		}
		vectors[d.Index] = d.Embedding
	}

	slog.DebugContext(ctx, "embedded batch", "inputs", len(texts), "tokens", parsed.Usage.TotalTokens)
	return vectors, nil
}

func truncate(body []byte) string {
	const limit = 500
	if len(body) > limit {
		return string(body[:limit])
	}
	return string(body)
}
