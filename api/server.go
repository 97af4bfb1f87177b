// Package api exposes the RAG pipeline over HTTP: an OpenAI-compatible
// surface for chat clients, health probes, status, and a context-injecting
// proxy for native Ollama clients.
package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/obelisk-rag/obelisk/internal/log"
	"github.com/obelisk-rag/obelisk/internal/rag"
	"github.com/obelisk-rag/obelisk/internal/vectorstore"
)

// RAG is the pipeline surface the API depends on. Satisfied by
// *rag.Service.
type RAG interface {
	Query(ctx context.Context, question string, opts ...rag.QueryOption) (*rag.Answer, error)
	Retrieve(ctx context.Context, question string, topK int) ([]vectorstore.Result, error)
	ListModels(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) rag.VaultStats
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Addr string
	// OllamaURL is the upstream for the native API proxy; empty disables
	// the proxy routes.
	OllamaURL string
}

// Server serves the HTTP API.
type Server struct {
	rag    RAG
	cfg    ServerConfig
	logger log.Logger
}

// NewServer creates the API server over a RAG pipeline.
func NewServer(r RAG, cfg ServerConfig, logger log.Logger) *Server {
	return &Server{rag: r, cfg: cfg, logger: logger}
}

// Handler builds the routed and middleware-wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/chat/completions", s.handleChatCompletions)
	mux.HandleFunc("GET /v1/models", s.handleModels)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /livez", s.handleLiveness)
	mux.HandleFunc("GET /readyz", s.handleReadiness)

	if s.cfg.OllamaURL != "" {
		if target, err := url.Parse(s.cfg.OllamaURL); err == nil {
			mux.Handle("/api/", s.ollamaProxy(target))
		} else {
			s.logger.Warn("invalid ollama url, proxy disabled", "url", s.cfg.OllamaURL, "error", err)
		}
	}

	return withRecovery(s.logger, withLogging(s.logger, mux))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("api server stopped")
	return nil
}
