package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/obelisk-rag/obelisk/internal/config"
	"github.com/obelisk-rag/obelisk/internal/log"
)

// Ollama talks to a local Ollama daemon over its native HTTP API.
// There is no official Go SDK, so the wire format is implemented directly.
type Ollama struct {
	baseURL        string
	model          string
	embeddingModel string
	temperature    float64
	maxTokens      int
	retries        int
	httpClient     *http.Client
	logger         log.Logger
}

// NewOllama builds an Ollama provider from configuration. Embeddings use
// ollama_embedding_model; the global embedding_model default names a hosted
// model no local daemon serves.
func NewOllama(cfg *config.Config, logger log.Logger) *Ollama {
	embeddingModel := cfg.OllamaEmbeddingModel
	if embeddingModel == "" {
		embeddingModel = cfg.OllamaModel
	}
	return &Ollama{
		baseURL:        strings.TrimSuffix(cfg.OllamaURL, "/"),
		model:          cfg.OllamaModel,
		embeddingModel: embeddingModel,
		temperature:    cfg.Temperature,
		maxTokens:      cfg.MaxTokens,
		retries:        cfg.RetryAttempts,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeout) * time.Second,
		},
		logger: logger,
	}
}

func (p *Ollama) Name() Kind { return KindOllama }

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	Error           string `json:"error"`
}

func (p *Ollama) Complete(ctx context.Context, prompt string, opts ...Option) (*Completion, error) {
	o := applyOptions(opts)

	model := p.model
	if o.Model != "" {
		model = o.Model
	}
	options := map[string]any{"temperature": p.temperature}
	if o.Temperature != nil {
		options["temperature"] = *o.Temperature
	}
	if o.MaxTokens != nil {
		options["num_predict"] = *o.MaxTokens
	} else if p.maxTokens > 0 {
		options["num_predict"] = p.maxTokens
	}

	var resp ollamaGenerateResponse
	err := p.doJSON(ctx, http.MethodPost, "/api/generate", ollamaGenerateRequest{
		Model:   model,
		Prompt:  prompt,
		Stream:  false,
		Options: options,
	}, &resp)
	if err != nil {
		return nil, opErr(KindOllama, "complete", err)
	}
	if resp.Error != "" {
		if strings.Contains(resp.Error, "not found") {
			return nil, opErr(KindOllama, "complete", fmt.Errorf("%w: %s", ErrModelNotFound, model))
		}
		return nil, opErr(KindOllama, "complete", fmt.Errorf("%s", resp.Error))
	}

	out := &Completion{
		Text:             resp.Response,
		Model:            resp.Model,
		Provider:         KindOllama,
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
	}
	if out.PromptTokens == 0 {
		out.PromptTokens = EstimateTokens(prompt)
	}
	if out.CompletionTokens == 0 {
		out.CompletionTokens = EstimateTokens(out.Text)
	}
	return out, nil
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error"`
}

func (p *Ollama) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var resp ollamaEmbedResponse
	err := p.doJSON(ctx, http.MethodPost, "/api/embed", ollamaEmbedRequest{
		Model: p.embeddingModel,
		Input: texts,
	}, &resp)
	if err != nil {
		return nil, opErr(KindOllama, "embed", err)
	}
	if resp.Error != "" {
		return nil, opErr(KindOllama, "embed", fmt.Errorf("%s", resp.Error))
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, opErr(KindOllama, "embed",
			fmt.Errorf("requested %d embeddings, got %d", len(texts), len(resp.Embeddings)))
	}
	return resp.Embeddings, nil
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

func (p *Ollama) ListModels(ctx context.Context) ([]string, error) {
	var resp ollamaTagsResponse
	if err := p.doJSON(ctx, http.MethodGet, "/api/tags", nil, &resp); err != nil {
		return nil, opErr(KindOllama, "list models", err)
	}
	models := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		models = append(models, m.Name)
	}
	return models, nil
}

// HealthCheck verifies the daemon answers /api/tags.
func (p *Ollama) HealthCheck(ctx context.Context) error {
	if _, err := p.ListModels(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrNotAvailable, err)
	}
	return nil
}

// doJSON performs one request with retries and exponential backoff.
// 4xx responses other than 429 are not retried.
func (p *Ollama) doJSON(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
	}

	attempts := p.retries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelay(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("building request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := p.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("reading response: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("decoding response: %w", err)
			}
			return nil
		case resp.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrModelNotFound, strings.TrimSpace(string(data)))
		case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
			return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		default:
			lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

// retryDelay returns an exponential backoff delay capped at 5 seconds.
func retryDelay(attempt int) time.Duration {
	d := time.Duration(1<<uint(attempt-1)) * 500 * time.Millisecond
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
