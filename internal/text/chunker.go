package text

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Chunk is one embeddable span of a page's markdown.
type Chunk struct {
	Content    string
	TokenCount int
}

// Tokenizer measures and splits text in model tokens.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// Chunker splits normalized text into an ordered, token-bounded sequence.
// Output order matches source order; chunk indexes are assigned by position.
type Chunker interface {
	Chunk(text string) []Chunk
}

// NewChunker builds the configured splitting strategy.
//
// "paragraph" keeps paragraphs whole and aggregates them up to the budgets;
// "window" slides a token-exact window of target size with overlap.
func NewChunker(strategy string, tk Tokenizer, target, max, overlap int) (Chunker, error) {
	switch strategy {
	case "paragraph":
		return &ParagraphChunker{tk: tk, target: target, max: max}, nil
	case "window":
		return &WindowChunker{tk: tk, target: target, max: max, overlap: overlap}, nil
	default:
		return nil, fmt.Errorf("unknown chunk strategy %q", strategy)
	}
}

var paragraphSep = regexp.MustCompile(`\n\s*\n`)

// ParagraphChunker aggregates blank-line-separated paragraphs. A paragraph is
// never split: a chunk is flushed before appending only when the hard max
// would be exceeded, and flushed after appending once the target is reached.
type ParagraphChunker struct {
	tk     Tokenizer
	target int
	max    int
}

func (c *ParagraphChunker) Chunk(text string) []Chunk {
	text = strings.ReplaceAll(text, "\r", "")
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var paragraphs []string
	for _, p := range paragraphSep.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}

	var chunks []Chunk
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			Content:    strings.Join(current, "\n\n"),
			TokenCount: currentTokens,
		})
		current = nil
		currentTokens = 0
	}

	for _, p := range paragraphs {
		pTokens := len(c.tk.Encode(p))

		// A lone paragraph over the hard cap is navigation noise or a
		// degenerate block; embedding it would violate the cap.
		if pTokens > c.max {
			slog.Debug("dropping oversized paragraph", "tokens", pTokens, "max", c.max)
			continue
		}

		if currentTokens+pTokens > c.max {
			flush()
		}

		current = append(current, p)
		currentTokens += pTokens

		if currentTokens >= c.target {
			flush()
		}
	}
	flush()

	return chunks
}

// WindowChunker slides a token-exact window of target size, overlapping
// consecutive windows by overlap tokens. Any window over the hard max is
// dropped rather than truncated.
type WindowChunker struct {
	tk      Tokenizer
	target  int
	max     int
	overlap int
}

func (c *WindowChunker) Chunk(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	ids := c.tk.Encode(text)
	if len(ids) == 0 {
		return nil
	}

	step := c.target - c.overlap
	if step < 1 {
		step = c.target
	}

	var chunks []Chunk
	for start := 0; start < len(ids); start += step {
		end := start + c.target
		if end > len(ids) {
			end = len(ids)
		}

		count := end - start
		if count > c.max {
			slog.Debug("dropping oversized window", "tokens", count, "max", c.max)
		} else if content := strings.TrimSpace(c.tk.Decode(ids[start:end])); content != "" {
			chunks = append(chunks, Chunk{Content: content, TokenCount: count})
		}

		if end == len(ids) {
			break
		}
	}

	return chunks
}
