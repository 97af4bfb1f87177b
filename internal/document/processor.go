package document

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/obelisk-rag/obelisk/internal/log"
)

// Processor ingests markdown files: parse front matter, split into chunks,
// and hand the chunks to the store.
type Processor struct {
	splitter *Splitter
	store    Store
	logger   log.Logger
}

// NewProcessor creates a document processor.
func NewProcessor(splitter *Splitter, store Store, logger log.Logger) *Processor {
	return &Processor{splitter: splitter, store: store, logger: logger}
}

// ProcessFile ingests a single markdown file and returns the stored chunk
// IDs. Non-markdown files are skipped with no error.
func (p *Processor) ProcessFile(ctx context.Context, path string) ([]string, error) {
	if !isMarkdown(path) {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		// Unreadable files are skipped, not fatal: the vault may hold
		// files mid-write or with odd permissions.
		p.logger.Warn("skipping unreadable file", "path", path, "error", err)
		return nil, nil
	}

	chunks := p.ChunkFile(path, string(raw))
	if len(chunks) == 0 {
		p.logger.Debug("file produced no chunks", "path", path)
		return nil, nil
	}

	ids, err := p.store.AddDocuments(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("storing chunks from %s: %w", path, err)
	}

	p.logger.Info("processed document", "path", path, "chunks", len(chunks))
	return ids, nil
}

// ChunkFile splits content into chunks carrying per-file metadata. The
// front-matter fields are copied onto every chunk alongside the source path
// and chunk index.
func (p *Processor) ChunkFile(path, content string) []Chunk {
	meta, body := parseFrontMatter(content)

	pieces := p.splitter.Split(body)
	chunks := make([]Chunk, 0, len(pieces))
	for i, piece := range pieces {
		m := make(map[string]any, len(meta)+2)
		for k, v := range meta {
			m[k] = v
		}
		m["source"] = path
		m["chunk_index"] = i

		chunks = append(chunks, Chunk{
			ID:       uuid.NewString(),
			Content:  piece,
			Metadata: m,
		})
	}
	return chunks
}

// ProcessDirectory walks dir recursively, ingesting every markdown file.
// Individual file failures are logged and skipped; the walk continues.
// It returns the number of files ingested and chunks stored.
func (p *Processor) ProcessDirectory(ctx context.Context, dir string) (files, chunks int, err error) {
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			// Skip hidden directories such as .obsidian and .git.
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !isMarkdown(path) {
			return nil
		}

		ids, err := p.ProcessFile(ctx, path)
		if err != nil {
			p.logger.Warn("skipping file", "path", path, "error", err)
			return nil
		}
		if len(ids) > 0 {
			files++
			chunks += len(ids)
		}
		return nil
	})
	if walkErr != nil {
		return files, chunks, fmt.Errorf("walking %s: %w", dir, walkErr)
	}
	return files, chunks, nil
}

func isMarkdown(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".md")
}
