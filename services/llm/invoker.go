package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sahilchouksey/adaptive-tutor-api/utils/logger"
	"golang.org/x/time/rate"
)

// QuotaPolicy decides what a quota failure does at a call site.
type QuotaPolicy int

const (
	// QuotaAdvance moves to the next candidate.
	QuotaAdvance QuotaPolicy = iota
	// QuotaRetry backs off and retries the same candidate.
	QuotaRetry
)

// RetryConfig bounds same-candidate retries.
type RetryConfig struct {
	MaxAttempts    int           // calls per candidate, including the first (default: 1)
	InitialBackoff time.Duration // delay before the second attempt
	MaxBackoff     time.Duration
}

// CalculateBackoff returns the delay before retry number attempt (0-based),
// doubling from InitialBackoff and capped at MaxBackoff.
func CalculateBackoff(attempt int, config RetryConfig) time.Duration {
	backoff := config.InitialBackoff * time.Duration(1<<uint(attempt))
	if config.MaxBackoff > 0 && backoff > config.MaxBackoff {
		return config.MaxBackoff
	}
	return backoff
}

// CallOptions configures one Generate call.
type CallOptions struct {
	Generation GenerationConfig
	Retry      RetryConfig
	Quota      QuotaPolicy
	// MinLength is the shortest trimmed response treated as usable. Zero
	// means any non-blank text.
	MinLength int
}

// Result is a successful generation.
type Result struct {
	Text  string
	Model string
	Calls int
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Invoker walks a candidate list, classifying each failure to decide between
// advancing, retrying, or aborting. It holds no per-call state.
type Invoker struct {
	provider Provider
	limiter  *rate.Limiter
	sleep    SleepFunc
	log      *logger.Logger
}

func NewInvoker(provider Provider, limiter *rate.Limiter, sleep SleepFunc, log *logger.Logger) *Invoker {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	if sleep == nil {
		sleep = sleepContext
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Invoker{provider: provider, limiter: limiter, sleep: sleep, log: log}
}

// Generate tries candidates in order. It never makes more than
// len(candidates) * MaxAttempts provider calls.
func (i *Invoker) Generate(ctx context.Context, candidates []string, prompt string, opts CallOptions) (*Result, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	maxAttempts := opts.Retry.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	calls := 0
	sawQuota := false
	var lastErr *ProviderError

	for idx, model := range candidates {
		isLast := idx == len(candidates)-1

	attempts:
		for attempt := 0; attempt < maxAttempts; attempt++ {
			if attempt > 0 {
				if err := i.sleep(ctx, CalculateBackoff(attempt-1, opts.Retry)); err != nil {
					return nil, err
				}
			}
			if err := i.limiter.Wait(ctx); err != nil {
				return nil, err
			}

			calls++
			text, err := i.provider.Generate(ctx, model, prompt, opts.Generation)
			if err == nil {
				trimmed := strings.TrimSpace(text)
				if trimmed != "" && len([]rune(trimmed)) >= opts.MinLength {
					return &Result{Text: text, Model: model, Calls: calls}, nil
				}
				err = &ProviderError{Kind: KindEmpty, Model: model, Err: ErrEmptyResponse}
			}

			perr := asProviderError(err, model)
			lastErr = perr

			switch perr.Kind {
			case KindAuth:
				i.log.Error("provider rejected credentials, aborting candidate chain", "model", model, "error", perr.Err)
				return nil, perr
			case KindNotFound:
				i.log.Warn("model not found, trying next candidate", "model", model)
				break attempts
			case KindQuota:
				sawQuota = true
				if opts.Quota == QuotaAdvance {
					i.log.Warn("model quota exhausted, trying next candidate", "model", model)
					break attempts
				}
				i.log.Warn("model quota exhausted, backing off", "model", model, "attempt", attempt+1)
			case KindEmpty:
				i.log.Warn("model returned unusable text", "model", model, "attempt", attempt+1)
			default:
				if isLast {
					return nil, perr
				}
				i.log.Warn("generation failed, trying next candidate", "model", model, "error", perr.Err)
				break attempts
			}
		}
	}

	if lastErr == nil {
		return nil, ErrNoCandidates
	}
	final := *lastErr
	if sawQuota {
		final.Kind = KindQuota
	}
	final.Err = fmt.Errorf("all %d candidates failed: %w", len(candidates), lastErr.Err)
	return nil, &final
}

func asProviderError(err error, model string) *ProviderError {
	var perr *ProviderError
	if errors.As(err, &perr) {
		if perr.Model == "" {
			return &ProviderError{Kind: perr.Kind, Model: model, Err: perr.Err}
		}
		return perr
	}
	return &ProviderError{Kind: ClassifyError(err), Model: model, Err: err}
}
