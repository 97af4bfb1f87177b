package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/obelisk-rag/obelisk/internal/document"
	"github.com/obelisk-rag/obelisk/internal/log"
)

// Embedder produces vectors for texts. Implemented by embedding.Service.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Result is one retrieved chunk with its inner-product similarity score.
type Result struct {
	ID         string
	Content    string
	Metadata   map[string]any
	Similarity float32
}

// Stats describes the collection for status reporting. When the database is
// unreachable, Chunks is -1 and Error carries the cause; Stats never fails
// outright so status surfaces stay usable during outages.
type Stats struct {
	Chunks     int64  `json:"chunks"`
	Collection string `json:"collection"`
	Dimension  int    `json:"dimension"`
	IndexType  string `json:"index_type"`
	Error      string `json:"error,omitempty"`
}

// searchOptions control one search call.
type searchOptions struct {
	limit int
}

// SearchOption customizes a search.
type SearchOption func(*searchOptions)

// WithLimit caps the number of results.
func WithLimit(n int) SearchOption {
	return func(o *searchOptions) { o.limit = n }
}

// Store persists chunks with their embeddings and answers similarity
// queries. Ingestion is deliberately forgiving: an embedding or database
// failure during AddDocuments is logged and yields zero stored IDs rather
// than an error, so one bad batch cannot abort a vault-wide reindex.
type Store struct {
	queries    Querier
	embedder   Embedder
	collection string
	dimension  int
	topK       int
	logger     log.Logger
}

// New creates a Store over the given querier and embedder. topK is the
// default result count for searches without an explicit limit.
func New(queries Querier, embedder Embedder, collection string, dimension, topK int, logger log.Logger) *Store {
	return &Store{
		queries:    queries,
		embedder:   embedder,
		collection: collection,
		dimension:  dimension,
		topK:       topK,
		logger:     logger,
	}
}

// Init creates the collection table and index if missing.
func (s *Store) Init(ctx context.Context) error {
	return s.queries.EnsureCollection(ctx)
}

// AddDocuments embeds and stores chunks, returning the stored IDs.
// Empty input returns an empty slice. Failures are logged and produce an
// empty result, never an error.
func (s *Store) AddDocuments(ctx context.Context, chunks []document.Chunk) ([]string, error) {
	if len(chunks) == 0 {
		return []string{}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		s.logger.Error("embedding batch failed, storing nothing", "chunks", len(chunks), "error", err)
		return []string{}, nil
	}
	if len(vectors) != len(chunks) {
		s.logger.Error("embedding count mismatch, storing nothing",
			"chunks", len(chunks), "vectors", len(vectors))
		return []string{}, nil
	}

	rows := make([]ChunkRow, 0, len(chunks))
	ids := make([]string, 0, len(chunks))
	for i, c := range chunks {
		if len(vectors[i]) != s.dimension {
			s.logger.Warn("skipping chunk with wrong embedding dimension",
				"id", c.ID, "got", len(vectors[i]), "want", s.dimension)
			continue
		}

		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}
		meta, err := marshalMetadata(coerceMetadata(c.Metadata))
		if err != nil {
			s.logger.Warn("unstorable metadata, keeping chunk with empty metadata",
				"id", id, "error", err)
			meta = []byte("{}")
		}

		source, _ := c.Metadata["source"].(string)
		rows = append(rows, ChunkRow{
			ID:        id,
			Content:   c.Content,
			Metadata:  meta,
			Source:    source,
			Embedding: pgvector.NewVector(vectors[i]),
		})
		ids = append(ids, id)
	}

	if err := s.queries.InsertChunks(ctx, rows); err != nil {
		s.logger.Error("storing chunks failed", "chunks", len(rows), "error", err)
		return []string{}, nil
	}

	s.logger.Debug("stored chunks", "count", len(ids))
	return ids, nil
}

// Search embeds the query and retrieves the nearest chunks. An embedding
// failure yields an empty result; database failures are returned as errors.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil || len(vector) == 0 {
		s.logger.Warn("query embedding failed, returning no results", "error", err)
		return []Result{}, nil
	}
	return s.SearchWithEmbedding(ctx, vector, opts...)
}

// SearchWithEmbedding retrieves the nearest chunks to a precomputed vector.
// A vector whose dimension does not match the collection returns an empty
// result rather than a database error surfaced from deep in the index.
func (s *Store) SearchWithEmbedding(ctx context.Context, vector []float32, opts ...SearchOption) ([]Result, error) {
	o := searchOptions{limit: s.topK}
	for _, fn := range opts {
		fn(&o)
	}

	if len(vector) != s.dimension {
		s.logger.Warn("embedding dimension mismatch, returning no results",
			"got", len(vector), "want", s.dimension)
		return []Result{}, nil
	}

	rows, err := s.queries.SearchChunks(ctx, pgvector.NewVector(vector), o.limit)
	if err != nil {
		return nil, fmt.Errorf("searching collection %s: %w", s.collection, err)
	}
	return s.rowsToResults(rows), nil
}

func (s *Store) rowsToResults(rows []ResultRow) []Result {
	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		meta := map[string]any{}
		if len(row.Metadata) > 0 {
			if err := json.Unmarshal(row.Metadata, &meta); err != nil {
				// Keep the chunk; metadata is advisory.
				s.logger.Warn("unparseable chunk metadata", "id", row.ID, "error", err)
				meta = map[string]any{}
			}
		}
		results = append(results, Result{
			ID:         row.ID,
			Content:    row.Content,
			Metadata:   meta,
			Similarity: row.Similarity,
		})
	}
	return results
}

// DeleteSource removes all chunks ingested from the given source path.
// Deleting a source with no stored chunks is not an error.
func (s *Store) DeleteSource(ctx context.Context, source string) error {
	n, err := s.queries.DeleteChunksBySource(ctx, source)
	if err != nil {
		return fmt.Errorf("deleting chunks for %s: %w", source, err)
	}
	s.logger.Debug("deleted chunks", "source", source, "count", n)
	return nil
}

// Stats reports the collection status, degrading instead of failing when the
// database is unreachable.
func (s *Store) Stats(ctx context.Context) Stats {
	st := Stats{
		Collection: s.collection,
		Dimension:  s.dimension,
		IndexType:  "hnsw",
	}
	n, err := s.queries.CountChunks(ctx)
	if err != nil {
		st.Chunks = -1
		st.Error = err.Error()
		return st
	}
	st.Chunks = n
	return st
}

// Drop removes the collection table entirely.
func (s *Store) Drop(ctx context.Context) error {
	return s.queries.DropCollection(ctx)
}
