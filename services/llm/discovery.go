package llm

import (
	"context"
	"strings"
	"time"
)

// Policy ranks available model ids into an ordered, deduplicated candidate list.
type Policy func(ids []string) []string

// ModelCache stores the provider's model list between requests.
type ModelCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

const modelCacheKey = "llm:models"

// Discovery lists generation-capable models and ranks them.
type Discovery struct {
	provider Provider
	cache    ModelCache
	cacheTTL time.Duration
}

func NewDiscovery(provider Provider, cache ModelCache, cacheTTL time.Duration) *Discovery {
	return &Discovery{provider: provider, cache: cache, cacheTTL: cacheTTL}
}

// ListCandidates returns the policy-ranked candidates for one call site.
func (d *Discovery) ListCandidates(ctx context.Context, policy Policy) ([]string, error) {
	ids, err := d.available(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrNoModels
	}
	ranked := policy(ids)
	if len(ranked) == 0 {
		return nil, ErrNoCandidates
	}
	return ranked, nil
}

func (d *Discovery) available(ctx context.Context) ([]string, error) {
	if d.cache != nil {
		var cached []string
		if err := d.cache.GetJSON(ctx, modelCacheKey, &cached); err == nil && len(cached) > 0 {
			return cached, nil
		}
	}

	models, err := d.provider.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(models))
	for _, m := range models {
		if m.SupportsGeneration && m.ID != "" {
			ids = append(ids, m.ID)
		}
	}

	if d.cache != nil && len(ids) > 0 && d.cacheTTL > 0 {
		// cache failures only cost an extra list call next time
		_ = d.cache.SetJSON(ctx, modelCacheKey, ids, d.cacheTTL)
	}
	return ids, nil
}

type ranking struct {
	seen  map[string]bool
	order []string
}

func newRanking() *ranking {
	return &ranking{seen: map[string]bool{}}
}

func (r *ranking) add(ids ...string) {
	for _, id := range ids {
		if !r.seen[id] {
			r.seen[id] = true
			r.order = append(r.order, id)
		}
	}
}

// filter matches on the lowercased id and returns the id as listed.
func filter(ids []string, keep func(string) bool) []string {
	var out []string
	for _, id := range ids {
		if keep(strings.ToLower(id)) {
			out = append(out, id)
		}
	}
	return out
}

func contains(id string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(id, p) {
			return false
		}
	}
	return true
}

func exact(ids []string, names ...string) []string {
	var out []string
	for _, name := range names {
		for _, id := range ids {
			if strings.EqualFold(id, name) {
				out = append(out, id)
				break
			}
		}
	}
	return out
}

// AnalysisPolicy prefers the high-quota 2.5 flash tier, then flash-latest,
// then other flash models, then lite flash, falling back to the first model.
func AnalysisPolicy(ids []string) []string {
	r := newRanking()

	if preferred := exact(ids, "gemini-2.5-flash"); len(preferred) > 0 {
		r.add(preferred...)
	} else {
		r.add(filter(ids, func(id string) bool { return contains(id, "2.5", "flash") && !strings.Contains(id, "lite") })...)
	}
	r.add(filter(ids, func(id string) bool { return strings.Contains(id, "flash-latest") })...)
	r.add(filter(ids, func(id string) bool {
		return strings.Contains(id, "flash") &&
			!strings.Contains(id, "lite") &&
			!strings.Contains(id, "latest") &&
			!strings.Contains(id, "2.5")
	})...)
	r.add(filter(ids, func(id string) bool { return contains(id, "flash", "lite") })...)

	if len(r.order) == 0 && len(ids) > 0 {
		r.add(ids[0])
	}
	return r.order
}

// ContentPolicy prefers the stable 1.x models for long-form content and
// leaves 2.5 models last.
func ContentPolicy(ids []string) []string {
	r := newRanking()
	r.add(exact(ids, "gemini-1.5-flash", "gemini-1.5-pro", "gemini-pro")...)
	r.add(filter(ids, func(id string) bool { return !strings.Contains(id, "2.5") })...)
	r.add(filter(ids, func(id string) bool { return strings.Contains(id, "2.5") })...)
	return r.order
}

// QuizPolicy prefers 2.5 flash, then the 1.x models, and never uses gemma
// or non-flash 2.5 models.
func QuizPolicy(ids []string) []string {
	r := newRanking()
	r.add(filter(ids, func(id string) bool { return contains(id, "2.5", "flash") && !strings.Contains(id, "gemma") })...)
	r.add(exact(ids, "gemini-1.5-pro", "gemini-1.5-flash", "gemini-pro")...)
	r.add(filter(ids, func(id string) bool {
		return !strings.Contains(id, "gemma") && !strings.Contains(id, "2.5")
	})...)
	return r.order
}
