package cmd

import (
	"context"
	"fmt"

	"github.com/obelisk-rag/obelisk/internal/config"
	"github.com/obelisk-rag/obelisk/internal/document"
	"github.com/obelisk-rag/obelisk/internal/embedding"
	"github.com/obelisk-rag/obelisk/internal/log"
	"github.com/obelisk-rag/obelisk/internal/provider"
	"github.com/obelisk-rag/obelisk/internal/rag"
	"github.com/obelisk-rag/obelisk/internal/vectorstore"

	"github.com/obelisk-rag/obelisk/db"
)

// buildService wires the full pipeline: database, provider with fallback,
// embedding service, vector store, and document processor. The returned
// cleanup releases the connection pool.
func buildService(ctx context.Context, cfg *config.Config, logger log.Logger) (*rag.Service, func(), error) {
	if err := db.Migrate(cfg.DatabaseURL()); err != nil {
		return nil, nil, fmt.Errorf("migrating database: %w", err)
	}

	pool, err := vectorstore.NewPool(ctx, cfg.DatabaseURL())
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}

	chat, err := provider.NewWithFallback(ctx, cfg, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	logger.Info("provider selected", "provider", chat.Name())

	embedder := embedding.New(cfg, chat, logger)
	querier := vectorstore.NewQuerier(pool, cfg.Collection, cfg.EmbeddingDim)
	store := vectorstore.New(querier, embedder, cfg.Collection, cfg.EmbeddingDim, cfg.RetrieveTopK, logger)
	if err := store.Init(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("initializing collection: %w", err)
	}

	splitter := document.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	processor := document.NewProcessor(splitter, store, logger)

	svc := rag.New(cfg, chat, embedder, store, processor, logger)
	return svc, pool.Close, nil
}
