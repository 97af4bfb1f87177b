package provider

import (
	"errors"
	"fmt"
)

// Sentinel errors for provider failures. Callers distinguish between a
// backend that cannot be used at all (ErrNotAvailable, triggers fallback)
// and a request-level failure (wrapped in *Error, surfaced to the caller).
var (
	// ErrNotAvailable means the backend is unreachable or misconfigured
	// (missing API key, daemon not running).
	ErrNotAvailable = errors.New("provider not available")

	// ErrModelNotFound means the requested model is not served by the backend.
	ErrModelNotFound = errors.New("model not found")

	// ErrUnknownKind means the requested provider kind is outside the
	// supported set.
	ErrUnknownKind = errors.New("unknown provider kind")
)

// Error wraps a backend failure with the provider kind and operation that
// produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s provider: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// opErr is a small constructor used throughout the implementations.
func opErr(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}
