package llm

import (
	"context"
	"time"

	"github.com/sahilchouksey/adaptive-tutor-api/utils/logger"
	"golang.org/x/time/rate"
)

// Client bundles discovery and invocation: pick candidates with a policy,
// then generate with fallback.
type Client struct {
	discovery *Discovery
	invoker   *Invoker
	enabled   bool
}

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	cache    ModelCache
	cacheTTL time.Duration
	limiter  *rate.Limiter
	sleep    SleepFunc
	log      *logger.Logger
}

func WithModelCache(cache ModelCache, ttl time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.cache = cache
		o.cacheTTL = ttl
	}
}

func WithRateLimit(limiter *rate.Limiter) ClientOption {
	return func(o *clientOptions) {
		o.limiter = limiter
	}
}

func WithSleep(sleep SleepFunc) ClientOption {
	return func(o *clientOptions) {
		o.sleep = sleep
	}
}

func WithLogger(log *logger.Logger) ClientOption {
	return func(o *clientOptions) {
		o.log = log
	}
}

// NewClient builds a Client. A nil provider yields a client whose every call
// fails with KindAuth.
func NewClient(provider Provider, opts ...ClientOption) *Client {
	o := &clientOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.NewNop()
	}
	return &Client{
		discovery: NewDiscovery(provider, o.cache, o.cacheTTL),
		invoker:   NewInvoker(provider, o.limiter, o.sleep, o.log.With("component", "llm")),
		enabled:   provider != nil,
	}
}

// Run lists candidates with policy and generates prompt against them.
func (c *Client) Run(ctx context.Context, policy Policy, prompt string, opts CallOptions) (*Result, error) {
	if c == nil || !c.enabled {
		return nil, &ProviderError{Kind: KindAuth, Err: ErrNotConfigured}
	}
	candidates, err := c.discovery.ListCandidates(ctx, policy)
	if err != nil {
		return nil, err
	}
	return c.invoker.Generate(ctx, candidates, prompt, opts)
}
