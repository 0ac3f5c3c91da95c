package httpx

import (
	"context"
	"log/slog"
	"time"
)

const (
	DefaultMaxAttempts      = 5
	DefaultInitialBackoff   = 5 * time.Second
	DefaultBackoffIncrement = 2 * time.Second
)

// RetryPolicy bounds how often a failed fetch is repeated. MaxAttempts counts
// retries after the first call, so a fetch makes at most MaxAttempts+1 calls.
type RetryPolicy struct {
	MaxAttempts      int
	InitialBackoff   time.Duration
	BackoffIncrement time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:      DefaultMaxAttempts,
		InitialBackoff:   DefaultInitialBackoff,
		BackoffIncrement: DefaultBackoffIncrement,
	}
}

// Backoff returns the pause taken before retry number retry (zero based).
func (p RetryPolicy) Backoff(retry int) time.Duration {
	if retry < 0 {
		retry = 0
	}
	return p.InitialBackoff + time.Duration(retry)*p.BackoffIncrement
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryHook is called before each pause with the failed outcome.
type RetryHook func(retry int, wait time.Duration, last Outcome)

type RetryingFetcher struct {
	fetcher Fetcher
	sleep   SleepFunc
	onRetry RetryHook
	logger  *slog.Logger
}

type RetryOption func(*RetryingFetcher)

func WithSleep(sleep SleepFunc) RetryOption {
	return func(r *RetryingFetcher) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

func WithRetryHook(hook RetryHook) RetryOption {
	return func(r *RetryingFetcher) {
		r.onRetry = hook
	}
}

func WithLogger(logger *slog.Logger) RetryOption {
	return func(r *RetryingFetcher) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewRetryingFetcher(fetcher Fetcher, opts ...RetryOption) *RetryingFetcher {
	r := &RetryingFetcher{
		fetcher: fetcher,
		sleep:   sleepWithContext,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RetryingFetcher) Fetch(ctx context.Context, rawURL string) Outcome {
	return r.fetcher.Fetch(ctx, rawURL)
}

// FetchWithRetry calls the wrapped fetcher until it succeeds or the policy is
// spent, and returns the last outcome.
func (r *RetryingFetcher) FetchWithRetry(ctx context.Context, rawURL string, policy RetryPolicy) Outcome {
	out := r.fetcher.Fetch(ctx, rawURL)
	for retry := 0; retry < policy.MaxAttempts && !out.OK(); retry++ {
		if out.Err.Reason == ReasonCanceled {
			return out
		}
		wait := policy.Backoff(retry)
		r.logger.Warn("fetch failed, retrying",
			"url", rawURL,
			"reason", out.Err.Reason,
			"status", out.Status,
			"retry", retry+1,
			"wait", wait,
		)
		if r.onRetry != nil {
			r.onRetry(retry, wait, out)
		}
		if err := r.sleep(ctx, wait); err != nil {
			return failure(rawURL, out.Status, err)
		}
		out = r.fetcher.Fetch(ctx, rawURL)
	}
	return out
}
