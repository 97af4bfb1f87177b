// Package vectorstore persists document chunks and their embeddings in
// PostgreSQL with the pgvector extension, and answers nearest-neighbor
// queries over them using an HNSW inner-product index.
package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
)

// efSearch is the HNSW candidate-list size used for queries.
const efSearch = 128

// ChunkRow is one row bound for the chunks table.
type ChunkRow struct {
	ID        string
	Content   string
	Metadata  []byte
	Source    string
	Embedding pgvector.Vector
}

// ResultRow is one nearest-neighbor match as read from the database.
type ResultRow struct {
	ID         string
	Content    string
	Metadata   []byte
	Similarity float32
}

// Querier is the database contract the Store depends on. Defined here, on
// the consumer side, so tests can substitute an in-memory implementation.
type Querier interface {
	EnsureCollection(ctx context.Context) error
	InsertChunks(ctx context.Context, rows []ChunkRow) error
	SearchChunks(ctx context.Context, embedding pgvector.Vector, limit int) ([]ResultRow, error)
	DeleteChunksBySource(ctx context.Context, source string) (int64, error)
	CountChunks(ctx context.Context) (int64, error)
	DropCollection(ctx context.Context) error
}

// NewPool opens a pgx connection pool with pgvector types registered on
// every connection.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// pgQuerier implements Querier over a pgx pool. One pgQuerier serves one
// collection; the collection name becomes the table name.
type pgQuerier struct {
	pool      *pgxpool.Pool
	table     string // sanitized identifier, safe to interpolate
	indexName string
	dimension int
}

// NewQuerier creates a Querier for the named collection with the given
// embedding dimension.
func NewQuerier(pool *pgxpool.Pool, collection string, dimension int) Querier {
	return &pgQuerier{
		pool:      pool,
		table:     pgx.Identifier{collection}.Sanitize(),
		indexName: pgx.Identifier{collection + "_embedding_idx"}.Sanitize(),
		dimension: dimension,
	}
}

func (q *pgQuerier) EnsureCollection(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id         UUID PRIMARY KEY,
			content    TEXT NOT NULL,
			metadata   JSONB NOT NULL DEFAULT '{}'::jsonb,
			source     TEXT NOT NULL DEFAULT '',
			embedding  vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, q.table, q.dimension)
	if _, err := q.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("creating collection table: %w", err)
	}

	idx := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s ON %s
		USING hnsw (embedding vector_ip_ops)
		WITH (m = 16, ef_construction = 256)`, q.indexName, q.table)
	if _, err := q.pool.Exec(ctx, idx); err != nil {
		return fmt.Errorf("creating vector index: %w", err)
	}
	return nil
}

func (q *pgQuerier) InsertChunks(ctx context.Context, rows []ChunkRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	sql := fmt.Sprintf(`
		INSERT INTO %s (id, content, metadata, source, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET content = EXCLUDED.content,
		    metadata = EXCLUDED.metadata,
		    source = EXCLUDED.source,
		    embedding = EXCLUDED.embedding`, q.table)
	for _, row := range rows {
		batch.Queue(sql, row.ID, row.Content, row.Metadata, row.Source, row.Embedding)
	}

	return pgx.BeginFunc(ctx, q.pool, func(tx pgx.Tx) error {
		br := tx.SendBatch(ctx, batch)
		defer br.Close()
		for range rows {
			if _, err := br.Exec(); err != nil {
				return fmt.Errorf("inserting chunk: %w", err)
			}
		}
		return nil
	})
}

func (q *pgQuerier) SearchChunks(ctx context.Context, embedding pgvector.Vector, limit int) ([]ResultRow, error) {
	// <#> is negative inner product; negating it back yields similarity.
	sql := fmt.Sprintf(`
		SELECT id, content, metadata, -(embedding <#> $1) AS similarity
		FROM %s
		ORDER BY embedding <#> $1
		LIMIT $2`, q.table)

	var results []ResultRow
	err := pgx.BeginFunc(ctx, q.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", efSearch)); err != nil {
			return fmt.Errorf("setting ef_search: %w", err)
		}

		rows, err := tx.Query(ctx, sql, embedding, limit)
		if err != nil {
			return fmt.Errorf("querying chunks: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var r ResultRow
			if err := rows.Scan(&r.ID, &r.Content, &r.Metadata, &r.Similarity); err != nil {
				return fmt.Errorf("scanning result: %w", err)
			}
			results = append(results, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (q *pgQuerier) DeleteChunksBySource(ctx context.Context, source string) (int64, error) {
	tag, err := q.pool.Exec(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE source = $1", q.table), source)
	if err != nil {
		return 0, fmt.Errorf("deleting chunks: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (q *pgQuerier) CountChunks(ctx context.Context) (int64, error) {
	var n int64
	err := q.pool.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s", q.table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

func (q *pgQuerier) DropCollection(ctx context.Context) error {
	if _, err := q.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", q.table)); err != nil {
		return fmt.Errorf("dropping collection: %w", err)
	}
	return nil
}

// marshalMetadata encodes chunk metadata for the JSONB column.
func marshalMetadata(meta map[string]any) ([]byte, error) {
	if meta == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(meta)
}
