package provider

import (
	"context"
	"fmt"

	"github.com/obelisk-rag/obelisk/internal/config"
	"github.com/obelisk-rag/obelisk/internal/log"
)

// New constructs a provider of the given kind. The set of kinds is closed;
// an unrecognized kind is rejected with the supported set named in the error.
func New(kind Kind, cfg *config.Config, logger log.Logger) (Provider, error) {
	switch kind {
	case KindRouter:
		return NewRouter(cfg, logger), nil
	case KindOllama:
		return NewOllama(cfg, logger), nil
	case KindOpenAI:
		return NewOpenAI(cfg, logger)
	default:
		return nil, fmt.Errorf("%w: %q (supported: %v)", ErrUnknownKind, kind, Kinds())
	}
}

// NewWithFallback constructs the configured primary provider, falling back
// through cfg.FallbackProviders when the primary cannot be built or fails
// its health check. Fallback is skipped entirely when disabled.
func NewWithFallback(ctx context.Context, cfg *config.Config, logger log.Logger) (Provider, error) {
	candidates := []Kind{Kind(cfg.Provider)}
	if cfg.EnableFallback {
		for _, name := range cfg.FallbackProviders {
			k := Kind(name)
			if k != candidates[0] {
				candidates = append(candidates, k)
			}
		}
	}

	var lastErr error
	for _, kind := range candidates {
		p, err := New(kind, cfg, logger)
		if err != nil {
			logger.Warn("provider unavailable, trying next", "provider", kind, "error", err)
			lastErr = err
			continue
		}
		if err := p.HealthCheck(ctx); err != nil {
			logger.Warn("provider failed health check, trying next", "provider", kind, "error", err)
			lastErr = err
			continue
		}
		if kind != candidates[0] {
			logger.Info("using fallback provider", "provider", kind, "primary", candidates[0])
		}
		return p, nil
	}
	return nil, fmt.Errorf("no usable provider among %v: %w", candidates, lastErr)
}
