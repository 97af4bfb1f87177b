// Package provider abstracts LLM and embedding backends behind a single
// interface with a closed set of implementations: a unified routing endpoint
// (router), a local Ollama daemon, and the OpenAI API.
//
// Providers are cheap to construct and carry no background state; callers
// build one per use via New and rely on HealthCheck to decide availability.
package provider

import (
	"context"
)

// Kind identifies a provider implementation. The set is closed; New rejects
// anything else.
type Kind string

const (
	KindRouter Kind = "router"
	KindOllama Kind = "ollama"
	KindOpenAI Kind = "openai"
)

// Kinds lists every supported provider kind.
func Kinds() []Kind {
	return []Kind{KindRouter, KindOllama, KindOpenAI}
}

// Completion is the typed result of a text generation call.
type Completion struct {
	Text             string
	Model            string
	Provider         Kind
	PromptTokens     int
	CompletionTokens int
}

// Options control a single generation call. Zero values mean "use the
// provider's configured default".
type Options struct {
	Model       string
	Temperature *float64
	MaxTokens   *int
}

// Option mutates per-call generation options.
type Option func(*Options)

// WithModel overrides the model for one call.
func WithModel(model string) Option {
	return func(o *Options) { o.Model = model }
}

// WithTemperature overrides the sampling temperature for one call.
func WithTemperature(t float64) Option {
	return func(o *Options) { o.Temperature = &t }
}

// WithMaxTokens caps the completion length for one call.
func WithMaxTokens(n int) Option {
	return func(o *Options) { o.MaxTokens = &n }
}

func applyOptions(opts []Option) Options {
	var o Options
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Provider is the common contract all backends implement.
type Provider interface {
	// Name reports the provider kind.
	Name() Kind

	// Complete generates text for the prompt.
	Complete(ctx context.Context, prompt string, opts ...Option) (*Completion, error)

	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// ListModels returns the model identifiers the backend currently serves.
	ListModels(ctx context.Context) ([]string, error)

	// HealthCheck verifies the backend is reachable and usable.
	HealthCheck(ctx context.Context) error
}

// EstimateTokens approximates the token count of text.
// The heuristic is one token per four characters; it is intentionally crude
// and only used for usage reporting, never for truncation decisions.
func EstimateTokens(text string) int {
	return len(text) / 4
}
