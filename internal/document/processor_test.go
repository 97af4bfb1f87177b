package document

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obelisk-rag/obelisk/internal/log"
)

// captureStore records chunks and echoes their IDs back. Chunks whose
// content contains failOn make the call fail. Safe for concurrent use so
// watcher tests can poll it.
type captureStore struct {
	mu     sync.Mutex
	chunks []Chunk
	failOn string
}

func (s *captureStore) AddDocuments(_ context.Context, chunks []Chunk) ([]string, error) {
	for _, c := range chunks {
		if s.failOn != "" && strings.Contains(c.Content, s.failOn) {
			return nil, errors.New("storage rejected chunk")
		}
	}
	s.mu.Lock()
	s.chunks = append(s.chunks, chunks...)
	s.mu.Unlock()
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	return ids, nil
}

func (s *captureStore) stored() []Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Chunk(nil), s.chunks...)
}

func TestParseFrontMatter(t *testing.T) {
	t.Run("valid yaml", func(t *testing.T) {
		meta, body := parseFrontMatter("---\ntitle: Notes\ntags:\n  - go\n  - rag\n---\n# Body\n")
		assert.Equal(t, "Notes", meta["title"])
		assert.Equal(t, []any{"go", "rag"}, meta["tags"])
		assert.Equal(t, "# Body\n", body)
	})

	t.Run("no front matter", func(t *testing.T) {
		meta, body := parseFrontMatter("# Just a doc\n")
		assert.Empty(t, meta)
		assert.Equal(t, "# Just a doc\n", body)
	})

	t.Run("malformed yaml falls back to key-value lines", func(t *testing.T) {
		meta, body := parseFrontMatter("---\ntitle: [unclosed\nauthor: someone\n---\nbody")
		assert.Equal(t, "[unclosed", meta["title"])
		assert.Equal(t, "someone", meta["author"])
		assert.Equal(t, "body", body)
	})

	t.Run("unterminated block is body", func(t *testing.T) {
		meta, body := parseFrontMatter("---\ntitle: Notes\nno closing delimiter")
		assert.Empty(t, meta)
		assert.Equal(t, "---\ntitle: Notes\nno closing delimiter", body)
	})
}

func TestChunkFileMetadata(t *testing.T) {
	p := NewProcessor(NewSplitter(50, 10), nil, log.NewNop())
	content := "---\ntitle: Graphs\n---\n" +
		"## A\nfirst section content goes here\n## B\nsecond section content goes here"

	chunks := p.ChunkFile("vault/graphs.md", content)
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, "vault/graphs.md", c.Metadata["source"])
		assert.Equal(t, i, c.Metadata["chunk_index"])
		assert.Equal(t, "Graphs", c.Metadata["title"])
		assert.NotContains(t, c.Content, "title: Graphs")
	}

	// IDs are unique per chunk.
	assert.NotEqual(t, chunks[0].ID, chunks[1].ID)
}

func TestProcessFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	require.NoError(t, os.WriteFile(path, []byte("# Title\n\nsome note content"), 0o644))

	store := &captureStore{}
	p := NewProcessor(NewSplitter(2500, 500), store, log.NewNop())

	ids, err := p.ProcessFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, store.chunks[0].ID, ids[0])
}

func TestProcessFileSkipsNonMarkdown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.png")
	require.NoError(t, os.WriteFile(path, []byte{0x89, 0x50}, 0o644))

	store := &captureStore{}
	p := NewProcessor(NewSplitter(2500, 500), store, log.NewNop())

	ids, err := p.ProcessFile(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Empty(t, store.chunks)
}

func TestProcessFileMissingFile(t *testing.T) {
	store := &captureStore{}
	p := NewProcessor(NewSplitter(2500, 500), store, log.NewNop())

	ids, err := p.ProcessFile(context.Background(), filepath.Join(t.TempDir(), "gone.md"))
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Empty(t, store.chunks)
}

func TestProcessDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".obsidian"), 0o755))

	write := func(rel, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, rel), []byte(content), 0o644))
	}
	write("a.md", "# A\ncontent a")
	write("sub/b.md", "# B\ncontent b")
	write("sub/c.txt", "not markdown")
	write(".obsidian/workspace.md", "editor state, must be ignored")

	store := &captureStore{}
	p := NewProcessor(NewSplitter(2500, 500), store, log.NewNop())

	files, chunks, err := p.ProcessDirectory(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, files)
	assert.Equal(t, 2, chunks)
}

func TestProcessDirectoryContinuesPastFailures(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.md"), []byte("poison pill"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.md"), []byte("fine"), 0o644))

	store := &captureStore{failOn: "poison"}
	p := NewProcessor(NewSplitter(2500, 500), store, log.NewNop())

	files, chunks, err := p.ProcessDirectory(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, files)
	assert.Equal(t, 1, chunks)
}
