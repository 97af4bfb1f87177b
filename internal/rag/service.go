// Package rag coordinates the retrieval-augmented generation pipeline:
// vault ingestion, retrieval, prompt assembly, and answer generation.
package rag

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/obelisk-rag/obelisk/internal/config"
	"github.com/obelisk-rag/obelisk/internal/document"
	"github.com/obelisk-rag/obelisk/internal/embedding"
	"github.com/obelisk-rag/obelisk/internal/log"
	"github.com/obelisk-rag/obelisk/internal/provider"
	"github.com/obelisk-rag/obelisk/internal/vectorstore"
)

// indexLockFile guards concurrent vault reindexing across processes.
const indexLockFile = ".obelisk.lock"

// Source identifies one retrieved document backing an answer.
type Source struct {
	Path       string  `json:"path"`
	Similarity float32 `json:"similarity"`
}

// Usage reports token accounting for one answer.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Answer is the typed result of a RAG query.
type Answer struct {
	Text      string        `json:"text"`
	Model     string        `json:"model"`
	Provider  provider.Kind `json:"provider"`
	Sources   []Source      `json:"sources"`
	Usage     Usage         `json:"usage"`
	NoContext bool          `json:"no_context"`
}

// VaultStats describes the indexed corpus and active configuration. It is
// assembled best-effort; a degraded store shows up inside Store rather than
// failing the whole report.
type VaultStats struct {
	VaultDir          string            `json:"vault_dir"`
	Provider          provider.Kind     `json:"provider"`
	EmbeddingProvider provider.Kind     `json:"embedding_provider"`
	Model             string            `json:"model"`
	Watching          bool              `json:"watching"`
	Store             vectorstore.Stats `json:"store"`
}

// queryOptions hold per-query overrides.
type queryOptions struct {
	providerKind provider.Kind
	model        string
	temperature  *float64
	maxTokens    *int
	topK         int
	noContext    bool
}

// QueryOption customizes one query.
type QueryOption func(*queryOptions)

// WithProvider answers this query through a different provider. A fresh
// provider instance is constructed for the call and discarded afterwards.
func WithProvider(kind provider.Kind) QueryOption {
	return func(o *queryOptions) { o.providerKind = kind }
}

// WithModel overrides the generation model for this query.
func WithModel(model string) QueryOption {
	return func(o *queryOptions) { o.model = model }
}

// WithTemperature overrides the sampling temperature for this query.
func WithTemperature(t float64) QueryOption {
	return func(o *queryOptions) { o.temperature = &t }
}

// WithMaxTokens caps the answer length for this query.
func WithMaxTokens(n int) QueryOption {
	return func(o *queryOptions) { o.maxTokens = &n }
}

// WithTopK overrides how many chunks are retrieved for this query.
func WithTopK(k int) QueryOption {
	return func(o *queryOptions) { o.topK = k }
}

// WithNoContext skips retrieval and sends the question directly to the model.
func WithNoContext() QueryOption {
	return func(o *queryOptions) { o.noContext = true }
}

// providerFactory constructs a provider; a seam so tests can observe
// per-query construction.
type providerFactory func(kind provider.Kind, cfg *config.Config, logger log.Logger) (provider.Provider, error)

// Service is the coordinator over providers, embeddings, storage, and
// document processing.
type Service struct {
	cfg       *config.Config
	chat      provider.Provider
	embedder  *embedding.Service
	store     *vectorstore.Store
	processor *document.Processor
	logger    log.Logger
	tracer    trace.Tracer

	newProvider providerFactory

	mu       sync.Mutex
	watcher  *document.Watcher
	watching bool
}

// New wires a Service from its collaborators. The chat provider answers
// queries unless a per-query override names another kind.
func New(cfg *config.Config, chat provider.Provider, embedder *embedding.Service,
	store *vectorstore.Store, processor *document.Processor, logger log.Logger) *Service {
	return &Service{
		cfg:         cfg,
		chat:        chat,
		embedder:    embedder,
		store:       store,
		processor:   processor,
		logger:      logger,
		tracer:      otel.Tracer("obelisk/rag"),
		newProvider: provider.New,
		watcher:     document.NewWatcher(processor, logger),
	}
}

// Query answers a question with retrieved vault context.
//
// Retrieval failures degrade to answering without context; generation
// failures are returned to the caller untouched.
func (s *Service) Query(ctx context.Context, question string, opts ...QueryOption) (*Answer, error) {
	o := queryOptions{topK: s.cfg.RetrieveTopK}
	for _, fn := range opts {
		fn(&o)
	}

	ctx, span := s.tracer.Start(ctx, "rag.query")
	defer span.End()

	p := s.chat
	if o.providerKind != "" && o.providerKind != s.chat.Name() {
		// Per-query override: a fresh, short-lived provider for this call.
		override, err := s.newProvider(o.providerKind, s.cfg, s.logger)
		if err != nil {
			return nil, fmt.Errorf("constructing %s provider: %w", o.providerKind, err)
		}
		p = override
	}

	var sources []Source
	prompt := question
	if !o.noContext {
		results, err := s.store.Search(ctx, question, vectorstore.WithLimit(o.topK))
		if err != nil {
			s.logger.Warn("retrieval failed, answering without context", "error", err)
			results = nil
		}
		if len(results) > 0 {
			prompt = buildPrompt(question, results)
			sources = toSources(results)
		}
	}

	var popts []provider.Option
	if o.model != "" {
		popts = append(popts, provider.WithModel(o.model))
	}
	if o.temperature != nil {
		popts = append(popts, provider.WithTemperature(*o.temperature))
	}
	if o.maxTokens != nil {
		popts = append(popts, provider.WithMaxTokens(*o.maxTokens))
	}

	completion, err := p.Complete(ctx, prompt, popts...)
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	span.SetAttributes(
		attribute.String("rag.provider", string(completion.Provider)),
		attribute.String("rag.model", completion.Model),
		attribute.Int("rag.sources", len(sources)),
	)

	return &Answer{
		Text:     completion.Text,
		Model:    completion.Model,
		Provider: completion.Provider,
		Sources:  sources,
		Usage: Usage{
			PromptTokens:     completion.PromptTokens,
			CompletionTokens: completion.CompletionTokens,
			TotalTokens:      completion.PromptTokens + completion.CompletionTokens,
		},
		NoContext: o.noContext || len(sources) == 0,
	}, nil
}

// Retrieve returns the chunks most similar to the question, without
// generation.
func (s *Service) Retrieve(ctx context.Context, question string, topK int) ([]vectorstore.Result, error) {
	if topK <= 0 {
		topK = s.cfg.RetrieveTopK
	}
	return s.store.Search(ctx, question, vectorstore.WithLimit(topK))
}

// ProcessVault reindexes the whole vault directory. A file lock serializes
// reindexing across processes sharing the vault.
func (s *Service) ProcessVault(ctx context.Context) (files, chunks int, err error) {
	ctx, span := s.tracer.Start(ctx, "rag.index",
		trace.WithAttributes(attribute.String("rag.vault_dir", s.cfg.VaultDir)))
	defer span.End()

	lock := flock.New(filepath.Join(s.cfg.VaultDir, indexLockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return 0, 0, fmt.Errorf("acquiring vault lock: %w", err)
	}
	if !locked {
		return 0, 0, fmt.Errorf("vault %s is being indexed by another process", s.cfg.VaultDir)
	}
	defer lock.Unlock()

	return s.processor.ProcessDirectory(ctx, s.cfg.VaultDir)
}

// ProcessFile ingests one file, as the watcher does on change events.
func (s *Service) ProcessFile(ctx context.Context, path string) ([]string, error) {
	return s.processor.ProcessFile(ctx, path)
}

// ListModels lists models available on the active chat provider.
func (s *Service) ListModels(ctx context.Context) ([]string, error) {
	return s.chat.ListModels(ctx)
}

// Stats reports pipeline status. It never fails; unreachable components are
// reflected inside the report.
func (s *Service) Stats(ctx context.Context) VaultStats {
	s.mu.Lock()
	watching := s.watching
	s.mu.Unlock()

	return VaultStats{
		VaultDir:          s.cfg.VaultDir,
		Provider:          s.chat.Name(),
		EmbeddingProvider: s.embedder.Provider(),
		Model:             s.cfg.LLMModel,
		Watching:          watching,
		Store:             s.store.Stats(ctx),
	}
}

// StartWatcher begins live vault monitoring. Starting an already watching
// service is a no-op.
func (s *Service) StartWatcher(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watching {
		return nil
	}
	if err := s.watcher.Start(ctx, s.cfg.VaultDir); err != nil {
		return fmt.Errorf("starting vault watcher: %w", err)
	}
	s.watching = true
	return nil
}

// StopWatcher halts live monitoring. Stopping a non-watching service is a
// no-op.
func (s *Service) StopWatcher() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.watching {
		return
	}
	s.watcher.Stop()
	s.watching = false
}

func toSources(results []vectorstore.Result) []Source {
	sources := make([]Source, 0, len(results))
	for _, r := range results {
		path, _ := r.Metadata["source"].(string)
		sources = append(sources, Source{Path: path, Similarity: r.Similarity})
	}
	return sources
}
