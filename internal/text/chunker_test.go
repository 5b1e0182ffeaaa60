package text

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTokenizer treats every whitespace-separated word as one token.
type fakeTokenizer struct {
	vocab map[int]string
	ids   map[string]int
}

func newFakeTokenizer() *fakeTokenizer {
	return &fakeTokenizer{vocab: map[int]string{}, ids: map[string]int{}}
}

func (f *fakeTokenizer) Encode(text string) []int {
	words := strings.Fields(text)
	out := make([]int, 0, len(words))
	for _, w := range words {
		id, ok := f.ids[w]
		if !ok {
			id = len(f.ids) + 1
			f.ids[w] = id
			f.vocab[id] = w
		}
		out = append(out, id)
	}
	return out
}

func (f *fakeTokenizer) Decode(tokens []int) string {
	words := make([]string, 0, len(tokens))
	for _, id := range tokens {
		words = append(words, f.vocab[id])
	}
	return strings.Join(words, " ")
}

func words(n int, prefix string) string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return strings.Join(out, " ")
}

func TestParagraphChunker(t *testing.T) {
	tk := newFakeTokenizer()

	t.Run("empty input yields no chunks", func(t *testing.T) {
		c := &ParagraphChunker{tk: tk, target: 15, max: 25}
		assert.Empty(t, c.Chunk(""))
		assert.Empty(t, c.Chunk("   \n\n  \n"))
	})

	t.Run("two small paragraphs aggregate into one chunk", func(t *testing.T) {
		// 10 + 10 tokens with target 15, max 25: appending the second
		// paragraph reaches the target without exceeding the max, so
		// both land in a single 20-token chunk.
		c := &ParagraphChunker{tk: tk, target: 15, max: 25}
		text := words(10, "a") + "\n\n" + words(10, "b")

		chunks := c.Chunk(text)
		require.Len(t, chunks, 1)
		assert.Equal(t, 20, chunks[0].TokenCount)
		assert.Contains(t, chunks[0].Content, "a0")
		assert.Contains(t, chunks[0].Content, "b9")
	})

	t.Run("max forces a flush before append", func(t *testing.T) {
		// 20 + 10 with max 25: second paragraph would push to 30, so the
		// first chunk is flushed alone.
		c := &ParagraphChunker{tk: tk, target: 100, max: 25}
		text := words(20, "a") + "\n\n" + words(10, "b")

		chunks := c.Chunk(text)
		require.Len(t, chunks, 2)
		assert.Equal(t, 20, chunks[0].TokenCount)
		assert.Equal(t, 10, chunks[1].TokenCount)
	})

	t.Run("paragraphs are never split", func(t *testing.T) {
		c := &ParagraphChunker{tk: tk, target: 8, max: 12}
		paras := []string{words(5, "p"), words(6, "q"), words(4, "r"), words(7, "s")}
		text := strings.Join(paras, "\n\n")

		chunks := c.Chunk(text)
		require.NotEmpty(t, chunks)

		// Every chunk must be a concatenation of whole input paragraphs.
		var reassembled []string
		for _, ch := range chunks {
			reassembled = append(reassembled, strings.Split(ch.Content, "\n\n")...)
		}
		assert.Equal(t, paras, reassembled)
	})

	t.Run("token count never exceeds max", func(t *testing.T) {
		c := &ParagraphChunker{tk: tk, target: 10, max: 15}
		var paras []string
		for i := 0; i < 12; i++ {
			paras = append(paras, words(3+i%7, fmt.Sprintf("w%d", i)))
		}
		for _, ch := range c.Chunk(strings.Join(paras, "\n\n")) {
			assert.LessOrEqual(t, ch.TokenCount, 15)
		}
	})

	t.Run("oversized lone paragraph is dropped", func(t *testing.T) {
		c := &ParagraphChunker{tk: tk, target: 10, max: 15}
		text := words(30, "big") + "\n\n" + words(5, "ok")

		chunks := c.Chunk(text)
		require.Len(t, chunks, 1)
		assert.Equal(t, 5, chunks[0].TokenCount)
		assert.NotContains(t, chunks[0].Content, "big0")
	})

	t.Run("output preserves source order", func(t *testing.T) {
		c := &ParagraphChunker{tk: tk, target: 5, max: 10}
		text := words(5, "first") + "\n\n" + words(5, "second") + "\n\n" + words(5, "third")

		chunks := c.Chunk(text)
		require.Len(t, chunks, 3)
		assert.Contains(t, chunks[0].Content, "first0")
		assert.Contains(t, chunks[1].Content, "second0")
		assert.Contains(t, chunks[2].Content, "third0")
	})
}

func TestWindowChunker(t *testing.T) {
	tk := newFakeTokenizer()

	t.Run("empty input yields no chunks", func(t *testing.T) {
		c := &WindowChunker{tk: tk, target: 10, max: 12, overlap: 3}
		assert.Empty(t, c.Chunk(""))
		assert.Empty(t, c.Chunk("  \n "))
	})

	t.Run("windows overlap by the configured amount", func(t *testing.T) {
		c := &WindowChunker{tk: tk, target: 10, max: 12, overlap: 3}
		text := words(24, "tok")

		chunks := c.Chunk(text)
		require.Len(t, chunks, 3)
		assert.Equal(t, 10, chunks[0].TokenCount)
		assert.Equal(t, 10, chunks[1].TokenCount)
		assert.Equal(t, 10, chunks[2].TokenCount)

		// Last 3 tokens of a window reappear at the head of the next.
		w0 := strings.Fields(chunks[0].Content)
		w1 := strings.Fields(chunks[1].Content)
		assert.Equal(t, w0[7:], w1[:3])
	})

	t.Run("short tail window is emitted", func(t *testing.T) {
		c := &WindowChunker{tk: tk, target: 10, max: 12, overlap: 0}
		chunks := c.Chunk(words(25, "tok"))
		require.Len(t, chunks, 3)
		assert.Equal(t, 5, chunks[2].TokenCount)
	})

	t.Run("all counts within max", func(t *testing.T) {
		c := &WindowChunker{tk: tk, target: 10, max: 12, overlap: 3}
		for _, ch := range c.Chunk(words(100, "tok")) {
			assert.LessOrEqual(t, ch.TokenCount, 12)
		}
	})
}

func TestNewChunker(t *testing.T) {
	tk := newFakeTokenizer()

	c, err := NewChunker("paragraph", tk, 400, 500, 50)
	require.NoError(t, err)
	assert.IsType(t, &ParagraphChunker{}, c)

	c, err = NewChunker("window", tk, 400, 500, 50)
	require.NoError(t, err)
	assert.IsType(t, &WindowChunker{}, c)

	_, err = NewChunker("sentences", tk, 400, 500, 50)
	assert.Error(t, err)
}
