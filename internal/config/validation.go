package config

import (
	"errors"
	"fmt"
)

// Validation sentinel errors.
var (
	ErrUnknownProvider     = errors.New("unknown provider")
	ErrInvalidChunking     = errors.New("invalid chunking parameters")
	ErrInvalidEmbeddingDim = errors.New("embedding dimension must be positive")
	ErrInvalidTopK         = errors.New("retrieve_top_k must be positive")
	ErrInvalidPort         = errors.New("invalid port")
	ErrInvalidTemperature  = errors.New("temperature must be in [0, 2]")
)

var knownProviders = map[string]bool{
	ProviderRouter: true,
	ProviderOllama: true,
	ProviderOpenAI: true,
}

// Validate checks the configuration for internally inconsistent or
// out-of-range values. It returns the first problem found.
func (c *Config) Validate() error {
	if !knownProviders[c.Provider] {
		return fmt.Errorf("%w: %q (known: router, ollama, openai)", ErrUnknownProvider, c.Provider)
	}
	for _, p := range c.FallbackProviders {
		if !knownProviders[p] {
			return fmt.Errorf("%w: fallback provider %q", ErrUnknownProvider, p)
		}
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap %d with chunk_size %d", ErrInvalidChunking, c.ChunkOverlap, c.ChunkSize)
	}
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidEmbeddingDim, c.EmbeddingDim)
	}
	if c.RetrieveTopK <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTopK, c.RetrieveTopK)
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("%w: api_port %d", ErrInvalidPort, c.APIPort)
	}
	if c.PostgresPort <= 0 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: postgres_port %d", ErrInvalidPort, c.PostgresPort)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %g", ErrInvalidTemperature, c.Temperature)
	}
	return nil
}
