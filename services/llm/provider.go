package llm

import "context"

// ModelInfo describes one model the provider exposes.
type ModelInfo struct {
	ID                 string
	SupportsGeneration bool
}

// GenerationConfig tunes a single generation call. Nil fields use the
// provider's defaults.
type GenerationConfig struct {
	Temperature     *float32
	TopP            *float32
	TopK            *int32
	MaxOutputTokens *int32
}

// Provider is the thin adapter over an LLM SDK. Implementations must return
// *ProviderError for classified failures.
type Provider interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
	Generate(ctx context.Context, model, prompt string, cfg GenerationConfig) (string, error)
}

func Float32(v float32) *float32 { return &v }

func Int32(v int32) *int32 { return &v }
