// Package document turns markdown files into storable chunks: it parses
// YAML front matter, splits content along markdown structure, and feeds the
// results to a vector store. A filesystem watcher keeps the store in sync
// with a live vault.
package document

import "context"

// Chunk is one retrievable unit of a source document.
type Chunk struct {
	ID       string
	Content  string
	Metadata map[string]any
}

// Store receives processed chunks. Implemented by vectorstore.Store.
type Store interface {
	AddDocuments(ctx context.Context, chunks []Chunk) ([]string, error)
}
