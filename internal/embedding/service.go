// Package embedding wraps a model provider's embedding capability with
// batching and the routing policy for where embeddings are produced.
package embedding

import (
	"context"
	"fmt"

	"github.com/obelisk-rag/obelisk/internal/config"
	"github.com/obelisk-rag/obelisk/internal/log"
	"github.com/obelisk-rag/obelisk/internal/provider"
)

// maxBatch bounds one upstream embedding request.
const maxBatch = 100

// Service produces embeddings through a provider.
type Service struct {
	provider provider.Provider
	logger   log.Logger
}

// New creates an embedding service for the active chat provider. When
// force_router_embeddings is set and the chat provider is not the router,
// embeddings go through a dedicated router provider instead, so local chat
// models can still use high-dimensional hosted embedding models.
func New(cfg *config.Config, chatProvider provider.Provider, logger log.Logger) *Service {
	p := chatProvider
	if cfg.ForceRouterEmbeddings && chatProvider.Name() != provider.KindRouter {
		logger.Info("routing embeddings through router provider",
			"chat_provider", chatProvider.Name())
		p = provider.NewRouter(cfg, logger)
	}
	return &Service{provider: p, logger: logger}
}

// NewWithProvider creates a service over an explicit provider.
func NewWithProvider(p provider.Provider, logger log.Logger) *Service {
	return &Service{provider: p, logger: logger}
}

// Provider reports which provider produces the embeddings.
func (s *Service) Provider() provider.Kind {
	return s.provider.Name()
}

// EmbedDocuments embeds texts in batches, preserving input order.
// Empty input yields an empty result without touching the backend.
func (s *Service) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := start + maxBatch
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := s.provider.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d-%d of %d: %w", start, end, len(texts), err)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// EmbedQuery embeds a single query string.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.provider.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedding query: expected 1 vector, got %d", len(vectors))
	}
	return vectors[0], nil
}
