package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestAnalysisPolicyLayers(t *testing.T) {
	ids := []string{
		"gemini-2.0-flash-lite",
		"gemini-1.5-pro",
		"gemini-flash-latest",
		"gemini-2.0-flash",
		"gemini-2.5-flash",
		"gemini-2.5-flash-preview",
	}
	assert.Equal(t, []string{
		"gemini-2.5-flash",
		"gemini-flash-latest",
		"gemini-2.0-flash",
		"gemini-2.0-flash-lite",
	}, AnalysisPolicy(ids))
}

func TestAnalysisPolicyFuzzyMatchWhenExactMissing(t *testing.T) {
	ids := []string{"gemini-2.5-flash-preview-05-20", "gemini-1.5-flash"}
	assert.Equal(t, []string{"gemini-2.5-flash-preview-05-20", "gemini-1.5-flash"}, AnalysisPolicy(ids))
}

func TestAnalysisPolicyFallsBackToFirstModel(t *testing.T) {
	assert.Equal(t, []string{"gemini-1.5-pro"}, AnalysisPolicy([]string{"gemini-1.5-pro", "gemini-pro"}))
}

func TestContentPolicyPutsTwoPointFiveLast(t *testing.T) {
	ids := []string{"gemini-2.5-flash", "gemini-2.0-flash", "gemini-pro", "gemini-1.5-flash"}
	assert.Equal(t, []string{"gemini-1.5-flash", "gemini-pro", "gemini-2.0-flash", "gemini-2.5-flash"}, ContentPolicy(ids))
}

func TestQuizPolicyExcludesGemmaAndNonFlashTwoPointFive(t *testing.T) {
	ids := []string{"gemma-3-27b", "gemini-2.5-pro", "gemini-2.0-flash", "gemini-1.5-pro", "gemini-2.5-flash"}
	assert.Equal(t, []string{"gemini-2.5-flash", "gemini-1.5-pro", "gemini-2.0-flash"}, QuizPolicy(ids))
}

func TestPoliciesMatchMixedCaseIDs(t *testing.T) {
	ids := []string{"Gemma-3-27B", "Gemini-2.5-Flash", "GEMINI-1.5-PRO", "Gemini-2.0-Flash-Lite"}

	assert.Equal(t, []string{"Gemini-2.5-Flash", "Gemini-2.0-Flash-Lite"}, AnalysisPolicy(ids))
	assert.Equal(t, []string{"Gemini-2.5-Flash", "GEMINI-1.5-PRO", "Gemini-2.0-Flash-Lite"}, QuizPolicy(ids))
	assert.Equal(t, []string{"GEMINI-1.5-PRO", "Gemma-3-27B", "Gemini-2.0-Flash-Lite", "Gemini-2.5-Flash"}, ContentPolicy(ids))
}

func TestListCandidatesDistinguishesEmptyProviderFromNoMatch(t *testing.T) {
	empty := &scriptedProvider{models: []ModelInfo{{ID: "embedding-001", SupportsGeneration: false}}}
	_, err := NewDiscovery(empty, nil, 0).ListCandidates(context.Background(), AnalysisPolicy)
	assert.ErrorIs(t, err, ErrNoModels)

	gemmaOnly := &scriptedProvider{models: []ModelInfo{{ID: "gemma-3-27b", SupportsGeneration: true}}}
	_, err = NewDiscovery(gemmaOnly, nil, 0).ListCandidates(context.Background(), QuizPolicy)
	assert.ErrorIs(t, err, ErrNoCandidates)
}

type memoryCache struct {
	data map[string][]byte
}

func (m *memoryCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.data[key]
	if !ok {
		return errors.New("miss")
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

type countingProvider struct {
	scriptedProvider
	lists int
}

func (c *countingProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	c.lists++
	return c.scriptedProvider.ListModels(ctx)
}

func TestListCandidatesUsesModelCache(t *testing.T) {
	p := &countingProvider{scriptedProvider: scriptedProvider{models: []ModelInfo{{ID: "gemini-2.5-flash", SupportsGeneration: true}}}}
	d := NewDiscovery(p, &memoryCache{data: map[string][]byte{}}, time.Minute)

	for i := 0; i < 3; i++ {
		ids, err := d.ListCandidates(context.Background(), AnalysisPolicy)
		require.NoError(t, err)
		assert.Equal(t, []string{"gemini-2.5-flash"}, ids)
	}
	assert.Equal(t, 1, p.lists)
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"http 404", &googleapi.Error{Code: http.StatusNotFound}, KindNotFound},
		{"http 429", &googleapi.Error{Code: http.StatusTooManyRequests}, KindQuota},
		{"http 403", &googleapi.Error{Code: http.StatusForbidden}, KindAuth},
		{"grpc resource exhausted", status.Error(codes.ResourceExhausted, "quota"), KindQuota},
		{"grpc not found", status.Error(codes.NotFound, "models/x is not found"), KindNotFound},
		{"grpc unauthenticated", status.Error(codes.Unauthenticated, "bad key"), KindAuth},
		{"grpc internal", status.Error(codes.Internal, "oops"), KindOther},
		{"message mentioning 429 is not enough", errors.New("429 quota exceeded"), KindOther},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyError(tc.err))
		})
	}
}
