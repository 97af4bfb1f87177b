package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obelisk-rag/obelisk/internal/config"
	"github.com/obelisk-rag/obelisk/internal/log"
)

func ollamaConfig(url string) *config.Config {
	return &config.Config{
		OllamaURL:            url,
		OllamaModel:          "llama3",
		OllamaEmbeddingModel: "nomic-embed-text",
		Temperature:          0.7,
		RequestTimeout:       5,
		RetryAttempts:        3,
	}
}

func TestOllamaComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)

		var req ollamaGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3", req.Model)
		assert.False(t, req.Stream)
		assert.Equal(t, "why is the sky blue?", req.Prompt)

		json.NewEncoder(w).Encode(ollamaGenerateResponse{
			Model:           "llama3",
			Response:        "Rayleigh scattering.",
			PromptEvalCount: 8,
			EvalCount:       4,
		})
	}))
	defer srv.Close()

	p := NewOllama(ollamaConfig(srv.URL), log.NewNop())
	got, err := p.Complete(context.Background(), "why is the sky blue?")
	require.NoError(t, err)

	assert.Equal(t, "Rayleigh scattering.", got.Text)
	assert.Equal(t, KindOllama, got.Provider)
	assert.Equal(t, 8, got.PromptTokens)
	assert.Equal(t, 4, got.CompletionTokens)
}

func TestOllamaCompleteOptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "mistral", req.Model)
		assert.Equal(t, 0.1, req.Options["temperature"])
		assert.Equal(t, float64(64), req.Options["num_predict"])

		json.NewEncoder(w).Encode(ollamaGenerateResponse{Model: "mistral", Response: "ok"})
	}))
	defer srv.Close()

	p := NewOllama(ollamaConfig(srv.URL), log.NewNop())
	_, err := p.Complete(context.Background(), "hi",
		WithModel("mistral"), WithTemperature(0.1), WithMaxTokens(64))
	require.NoError(t, err)
}

func TestOllamaCompleteModelNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model \"nope\" not found"}`))
	}))
	defer srv.Close()

	p := NewOllama(ollamaConfig(srv.URL), log.NewNop())
	_, err := p.Complete(context.Background(), "hi", WithModel("nope"))
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestOllamaEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embed", r.URL.Path)

		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)
		assert.Len(t, req.Input, 2)

		json.NewEncoder(w).Encode(ollamaEmbedResponse{
			Embeddings: [][]float32{{0.1, 0.2}, {0.3, 0.4}},
		})
	}))
	defer srv.Close()

	p := NewOllama(ollamaConfig(srv.URL), log.NewNop())
	got, err := p.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.1, 0.2}, {0.3, 0.4}}, got)
}

func TestOllamaEmbedIgnoresGlobalEmbeddingModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "mxbai-embed-large", req.Model)

		json.NewEncoder(w).Encode(ollamaEmbedResponse{
			Embeddings: [][]float32{{0.1}},
		})
	}))
	defer srv.Close()

	cfg := ollamaConfig(srv.URL)
	cfg.OllamaEmbeddingModel = "mxbai-embed-large"
	cfg.EmbeddingModel = "text-embedding-3-large"

	p := NewOllama(cfg, log.NewNop())
	_, err := p.Embed(context.Background(), []string{"a"})
	require.NoError(t, err)
}

func TestOllamaEmbedEmptyInput(t *testing.T) {
	p := NewOllama(ollamaConfig("http://127.0.0.1:1"), log.NewNop())
	got, err := p.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOllamaEmbedCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaEmbedResponse{
			Embeddings: [][]float32{{0.1}},
		})
	}))
	defer srv.Close()

	p := NewOllama(ollamaConfig(srv.URL), log.NewNop())
	_, err := p.Embed(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got 1")
}

func TestOllamaRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(ollamaTagsResponse{})
	}))
	defer srv.Close()

	p := NewOllama(ollamaConfig(srv.URL), log.NewNop())
	_, err := p.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestOllamaNoRetryOnBadRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid request"}`))
	}))
	defer srv.Close()

	p := NewOllama(ollamaConfig(srv.URL), log.NewNop())
	_, err := p.Complete(context.Background(), "hi")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOllamaListModelsAndHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		w.Write([]byte(`{"models":[{"name":"llama3:latest"},{"name":"mistral:7b"}]}`))
	}))
	defer srv.Close()

	p := NewOllama(ollamaConfig(srv.URL), log.NewNop())

	models, err := p.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3:latest", "mistral:7b"}, models)

	assert.NoError(t, p.HealthCheck(context.Background()))
}

func TestOllamaHealthCheckUnreachable(t *testing.T) {
	cfg := ollamaConfig("http://127.0.0.1:1")
	cfg.RetryAttempts = 1
	p := NewOllama(cfg, log.NewNop())
	assert.ErrorIs(t, p.HealthCheck(context.Background()), ErrNotAvailable)
}
