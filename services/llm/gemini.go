package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const generateContentMethod = "generateContent"

// GeminiProvider adapts the Gemini SDK to Provider.
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider creates a client authenticated with apiKey.
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

func (g *GeminiProvider) Close() error {
	return g.client.Close()
}

func (g *GeminiProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var models []ModelInfo
	it := g.client.ListModels(ctx)
	for {
		m, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, &ProviderError{Kind: ClassifyError(err), Err: err}
		}
		info := ModelInfo{ID: strings.TrimPrefix(m.Name, "models/")}
		for _, method := range m.SupportedGenerationMethods {
			if method == generateContentMethod {
				info.SupportsGeneration = true
				break
			}
		}
		models = append(models, info)
	}
	return models, nil
}

func (g *GeminiProvider) Generate(ctx context.Context, model, prompt string, cfg GenerationConfig) (string, error) {
	gm := g.client.GenerativeModel(model)
	if cfg.Temperature != nil {
		gm.SetTemperature(*cfg.Temperature)
	}
	if cfg.TopP != nil {
		gm.SetTopP(*cfg.TopP)
	}
	if cfg.TopK != nil {
		gm.SetTopK(*cfg.TopK)
	}
	if cfg.MaxOutputTokens != nil {
		gm.SetMaxOutputTokens(*cfg.MaxOutputTokens)
	}

	resp, err := gm.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &ProviderError{Kind: ClassifyError(err), Model: model, Err: err}
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		// first candidate with content wins
		if sb.Len() > 0 {
			break
		}
	}
	return sb.String(), nil
}

// ClassifyError maps SDK errors (REST or gRPC transport) onto Kind.
func ClassifyError(err error) Kind {
	if err == nil {
		return KindOther
	}
	if errors.Is(err, ErrNotConfigured) {
		return KindAuth
	}

	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return KindEmpty
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return KindNotFound
		case http.StatusTooManyRequests:
			return KindQuota
		case http.StatusUnauthorized, http.StatusForbidden:
			return KindAuth
		}
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.NotFound:
			return KindNotFound
		case codes.ResourceExhausted:
			return KindQuota
		case codes.Unauthenticated, codes.PermissionDenied:
			return KindAuth
		}
	}

	return KindOther
}
