package weaviate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkID_Deterministic(t *testing.T) {
	a := ChunkID("https://example.org/page", 0)
	b := ChunkID("https://example.org/page", 0)
	assert.Equal(t, a, b)
}

func TestChunkID_DistinctPerKey(t *testing.T) {
	seen := map[string]bool{
		ChunkID("https://example.org/page", 0):  true,
		ChunkID("https://example.org/page", 1):  true,
		ChunkID("https://example.org/page", 10): true,
		ChunkID("https://example.org/other", 0): true,
	}
	assert.Len(t, seen, 4)
}

func TestChunkID_IndexNotAmbiguous(t *testing.T) {
	// "page#1" + 1 must not collide with "page#11" + "".
	a := ChunkID("https://example.org/page#1", 1)
	b := ChunkID("https://example.org/page#11", 0)
	assert.NotEqual(t, a, b)
}
