package llm

import (
	"errors"
	"fmt"
)

// Kind classifies a provider failure. Callers branch on Kind, never on
// provider error text.
type Kind int

const (
	KindOther Kind = iota
	KindNotFound
	KindQuota
	KindAuth
	KindEmpty
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindQuota:
		return "quota_exceeded"
	case KindAuth:
		return "auth_error"
	case KindEmpty:
		return "empty_response"
	default:
		return "provider_error"
	}
}

var (
	// ErrNoModels means the provider listed no model supporting text generation.
	ErrNoModels = errors.New("provider returned no generation-capable models")
	// ErrNoCandidates means models exist but the ranking policy matched none.
	ErrNoCandidates = errors.New("no candidates available")
	// ErrEmptyResponse is returned when a call succeeds without usable text.
	ErrEmptyResponse = errors.New("model returned no usable text")
	// ErrNotConfigured is returned when no API key was supplied.
	ErrNotConfigured = errors.New("LLM provider API key is not configured")
)

// ProviderError is a classified failure from a provider call.
type ProviderError struct {
	Kind  Kind
	Model string
	Err   error
}

func (e *ProviderError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s (model %s): %v", e.Kind, e.Model, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// KindOf returns the classification carried by err, or KindOther.
func KindOf(err error) Kind {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return KindOther
}
