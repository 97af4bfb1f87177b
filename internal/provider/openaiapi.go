package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/obelisk-rag/obelisk/internal/config"
	"github.com/obelisk-rag/obelisk/internal/log"
)

// oaiCore implements the Provider contract over any OpenAI-compatible
// endpoint. The router and openai kinds differ only in construction
// (base URL, key requirements) and health-check strategy.
type oaiCore struct {
	kind           Kind
	client         openai.Client
	model          string
	embeddingModel string
	temperature    float64
	maxTokens      int
	logger         log.Logger
}

func newCore(kind Kind, cfg *config.Config, logger log.Logger, clientOpts ...option.RequestOption) *oaiCore {
	opts := append([]option.RequestOption{
		option.WithMaxRetries(cfg.RetryAttempts),
		option.WithRequestTimeout(time.Duration(cfg.RequestTimeout) * time.Second),
	}, clientOpts...)

	return &oaiCore{
		kind:           kind,
		client:         openai.NewClient(opts...),
		model:          cfg.LLMModel,
		embeddingModel: cfg.EmbeddingModel,
		temperature:    cfg.Temperature,
		maxTokens:      cfg.MaxTokens,
		logger:         logger,
	}
}

func (c *oaiCore) Name() Kind { return c.kind }

func (c *oaiCore) Complete(ctx context.Context, prompt string, opts ...Option) (*Completion, error) {
	o := applyOptions(opts)

	model := c.model
	if o.Model != "" {
		model = o.Model
	}
	temperature := c.temperature
	if o.Temperature != nil {
		temperature = *o.Temperature
	}
	maxTokens := c.maxTokens
	if o.MaxTokens != nil {
		maxTokens = *o.MaxTokens
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(temperature),
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, opErr(c.kind, "complete", err)
	}
	if len(resp.Choices) == 0 {
		return nil, opErr(c.kind, "complete", errors.New("response contained no choices"))
	}

	out := &Completion{
		Text:             resp.Choices[0].Message.Content,
		Model:            resp.Model,
		Provider:         c.kind,
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
	}
	if out.PromptTokens == 0 {
		out.PromptTokens = EstimateTokens(prompt)
	}
	if out.CompletionTokens == 0 {
		out.CompletionTokens = EstimateTokens(out.Text)
	}
	return out, nil
}

func (c *oaiCore) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	})
	if err != nil {
		return nil, opErr(c.kind, "embed", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, opErr(c.kind, "embed",
			fmt.Errorf("requested %d embeddings, got %d", len(texts), len(resp.Data)))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= int64(len(texts)) {
			return nil, opErr(c.kind, "embed",
				fmt.Errorf("embedding index %d out of range for %d inputs", d.Index, len(texts)))
		}
		vec := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			vec[i] = float32(f)
		}
		vectors[d.Index] = vec
	}
	return vectors, nil
}

func (c *oaiCore) ListModels(ctx context.Context) ([]string, error) {
	var models []string
	it := c.client.Models.ListAutoPaging(ctx)
	for it.Next() {
		models = append(models, it.Current().ID)
	}
	if err := it.Err(); err != nil {
		return nil, opErr(c.kind, "list models", err)
	}
	return models, nil
}

// Router talks to a unified OpenAI-compatible routing endpoint (such as a
// LiteLLM proxy) that multiplexes many upstream models behind one API.
type Router struct {
	*oaiCore
}

// NewRouter builds a router provider from configuration. The router endpoint
// may run without authentication, so a missing key is not an error.
func NewRouter(cfg *config.Config, logger log.Logger) *Router {
	opts := []option.RequestOption{option.WithBaseURL(cfg.RouterBaseURL)}
	if cfg.RouterAPIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.RouterAPIKey))
	}
	return &Router{oaiCore: newCore(KindRouter, cfg, logger, opts...)}
}

// HealthCheck issues a minimal one-token completion through the router,
// proving both connectivity and upstream model access.
func (r *Router) HealthCheck(ctx context.Context) error {
	_, err := r.Complete(ctx, "ping", WithMaxTokens(1), WithTemperature(0))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotAvailable, err)
	}
	return nil
}

// OpenAI talks directly to the OpenAI API.
type OpenAI struct {
	*oaiCore
}

// NewOpenAI builds an OpenAI provider. A missing API key makes the provider
// unavailable rather than failing on first use.
func NewOpenAI(cfg *config.Config, logger log.Logger) (*OpenAI, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", ErrNotAvailable)
	}
	core := newCore(KindOpenAI, cfg, logger, option.WithAPIKey(cfg.OpenAIAPIKey))
	if cfg.OpenAIModel != "" {
		core.model = cfg.OpenAIModel
	}
	if cfg.OpenAIEmbeddingModel != "" {
		core.embeddingModel = cfg.OpenAIEmbeddingModel
	}
	return &OpenAI{oaiCore: core}, nil
}

// HealthCheck embeds a short probe string, which is cheaper than a
// completion and exercises the credentials end to end.
func (o *OpenAI) HealthCheck(ctx context.Context) error {
	if _, err := o.Embed(ctx, []string{"ping"}); err != nil {
		return fmt.Errorf("%w: %v", ErrNotAvailable, err)
	}
	return nil
}
