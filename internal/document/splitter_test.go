package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEmptyInput(t *testing.T) {
	s := NewSplitter(100, 20)
	assert.Nil(t, s.Split(""))
	assert.Nil(t, s.Split("   \n\t  "))
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	s := NewSplitter(100, 20)
	got := s.Split("a short note")
	require.Len(t, got, 1)
	assert.Equal(t, "a short note", got[0])
}

func TestSplitRespectsChunkSize(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("## Heading\n\nSome paragraph text under the heading with enough words.\n")
	}

	s := NewSplitter(200, 40)
	chunks := s.Split(b.String())
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.LessOrEqual(t, len(c), 200, "chunk %d exceeds size", i)
		assert.NotEmpty(t, strings.TrimSpace(c))
	}
}

func TestSplitPrefersHeadingBoundaries(t *testing.T) {
	text := "intro text\n## First\nbody one body one body one\n## Second\nbody two body two body two"
	s := NewSplitter(45, 0)
	chunks := s.Split(text)
	require.Greater(t, len(chunks), 1)
	// Heading markers survive at chunk starts rather than being cut mid-line.
	found := false
	for _, c := range chunks {
		if strings.HasPrefix(c, "## Second") {
			found = true
		}
	}
	assert.True(t, found, "expected a chunk starting at the second heading, got %q", chunks)
}

func TestSplitNoSeparatorsFallsBackToWindow(t *testing.T) {
	text := strings.Repeat("x", 950)
	s := NewSplitter(400, 100)
	chunks := s.Split(text)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 400)
	}
	// All content is covered.
	assert.GreaterOrEqual(t, len(strings.Join(chunks, "")), 950)
}

func TestSplitOverlapCarriesContext(t *testing.T) {
	words := make([]string, 100)
	for i := range words {
		words[i] = "word"
	}
	text := strings.Join(words, " ")

	s := NewSplitter(120, 40)
	chunks := s.Split(text)
	require.Greater(t, len(chunks), 1)

	// Consecutive chunks share a suffix/prefix of roughly the overlap size.
	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		shared := 0
		for l := 1; l <= len(prev) && l <= len(cur); l++ {
			if strings.HasSuffix(prev, cur[:l]) {
				shared = l
			}
		}
		assert.Greater(t, shared, 0, "chunks %d and %d share no overlap", i-1, i)
	}
}
