// Package testutil provides shared test doubles.
package testutil

import (
	"context"
	"sync"

	"github.com/obelisk-rag/obelisk/internal/provider"
)

// MockProvider is a configurable in-memory provider.Provider. It counts
// calls so tests can assert how often and with what a backend was used.
// Safe for concurrent use.
type MockProvider struct {
	mu sync.Mutex

	Kind      provider.Kind
	Dimension int

	// Responses
	CompleteText string
	Models       []string

	// Failures
	CompleteErr error
	EmbedErr    error
	ListErr     error
	HealthErr   error

	completeCalls int
	embedCalls    int
	healthCalls   int

	// LastPrompt and LastOptions record the most recent Complete call.
	LastPrompt  string
	LastOptions provider.Options
	// LastEmbedInput records the most recent Embed call.
	LastEmbedInput []string
}

// NewMockProvider returns a mock of the given kind with a small default
// embedding dimension and a canned completion.
func NewMockProvider(kind provider.Kind) *MockProvider {
	return &MockProvider{
		Kind:         kind,
		Dimension:    4,
		CompleteText: "mock answer",
		Models:       []string{"mock-model"},
	}
}

func (m *MockProvider) Name() provider.Kind { return m.Kind }

func (m *MockProvider) Complete(_ context.Context, prompt string, opts ...provider.Option) (*provider.Completion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeCalls++
	m.LastPrompt = prompt

	var o provider.Options
	for _, fn := range opts {
		fn(&o)
	}
	m.LastOptions = o

	if m.CompleteErr != nil {
		return nil, m.CompleteErr
	}
	model := "mock-model"
	if o.Model != "" {
		model = o.Model
	}
	return &provider.Completion{
		Text:             m.CompleteText,
		Model:            model,
		Provider:         m.Kind,
		PromptTokens:     provider.EstimateTokens(prompt),
		CompletionTokens: provider.EstimateTokens(m.CompleteText),
	}, nil
}

func (m *MockProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedCalls++
	m.LastEmbedInput = texts

	if m.EmbedErr != nil {
		return nil, m.EmbedErr
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, m.Dimension)
		out[i][0] = float32(i + 1)
	}
	return out, nil
}

func (m *MockProvider) ListModels(context.Context) ([]string, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.Models, nil
}

func (m *MockProvider) HealthCheck(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthCalls++
	return m.HealthErr
}

// CompleteCalls reports how many times Complete was invoked.
func (m *MockProvider) CompleteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completeCalls
}

// EmbedCalls reports how many times Embed was invoked.
func (m *MockProvider) EmbedCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.embedCalls
}

// HealthCalls reports how many times HealthCheck was invoked.
func (m *MockProvider) HealthCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthCalls
}
