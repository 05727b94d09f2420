package crawler

import (
	"context"
	"crypto/rand"
	"errors"
	"math"
	"math/big"
	"net"
	"time"

	"go.uber.org/zap"
)

// Retry defaults matching the transient-failure policy: up to 5 attempts
// with exponential backoff, doubling from the base delay up to the cap.
const (
	defaultMaxAttempts  = 5
	defaultBackoffBase  = 500 * time.Millisecond
	defaultBackoffLimit = 30 * time.Second
)

// ExponentialRetryPolicy implements RetryPolicy with jittered backoff.
type ExponentialRetryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// NewExponentialRetryPolicy builds a policy with the default limits.
func NewExponentialRetryPolicy() *ExponentialRetryPolicy {
	return NewRetryPolicy(defaultMaxAttempts, defaultBackoffBase, defaultBackoffLimit)
}

// NewRetryPolicy builds a policy with explicit limits, substituting defaults
// for non-positive values.
func NewRetryPolicy(maxAttempts int, baseDelay, maxDelay time.Duration) *ExponentialRetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = defaultBackoffBase
	}
	if maxDelay <= 0 {
		maxDelay = defaultBackoffLimit
	}
	return &ExponentialRetryPolicy{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
	}
}

// ShouldRetry decides whether a failed attempt should be repeated. attempt is
// the number of attempts already made; once it reaches the limit the task
// fails with KindExhausted.
func (p *ExponentialRetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt >= p.maxAttempts {
		return false
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return retryableKind(fetchErr.Kind)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	// Unclassified transport errors are assumed transient.
	return true
}

// Backoff returns the wait duration before the next attempt: half the capped
// exponential delay plus random jitter up to the other half.
func (p *ExponentialRetryPolicy) Backoff(attempt int) time.Duration {
	delay := float64(p.baseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(p.maxDelay) {
		delay = float64(p.maxDelay)
	}
	jitter := p.randomJitter(time.Duration(delay) / 2)
	return time.Duration(delay/2) + jitter
}

func (p *ExponentialRetryPolicy) randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	bound := big.NewInt(int64(limit))
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}

// RetryingFetcher wraps any Fetcher with the retry policy. Both the static
// and rendered fetchers go through this wrapper so retry semantics are
// uniform regardless of transport.
type RetryingFetcher struct {
	inner  Fetcher
	policy RetryPolicy
	pauser pauseController
	logger *zap.Logger
}

// NewRetryingFetcher wraps inner with policy.
func NewRetryingFetcher(inner Fetcher, policy RetryPolicy, logger *zap.Logger) *RetryingFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryingFetcher{
		inner:  inner,
		policy: policy,
		pauser: &timerPauseController{},
		logger: logger,
	}
}

// Fetch attempts the inner fetch, retrying per the policy. On exhaustion the
// last error is wrapped as KindExhausted; non-retryable failures return
// immediately.
func (f *RetryingFetcher) Fetch(ctx context.Context, rawURL, proxy string) (FetchResult, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return FetchResult{}, err
		}

		fetchAttempts.Inc()
		f.logger.Debug("fetch attempt",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt+1),
			zap.String("proxy", proxy),
		)

		res, err := f.inner.Fetch(ctx, rawURL, proxy)
		if err == nil {
			res.Retries = attempt
			return res, nil
		}
		lastErr = err

		if !f.policy.ShouldRetry(err, attempt+1) {
			var fetchErr *FetchError
			switch {
			case errors.As(err, &fetchErr) && !retryableKind(fetchErr.Kind):
				return FetchResult{}, err
			case fetchErr == nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
				return FetchResult{}, err
			}
			return FetchResult{}, &FetchError{
				Kind: KindExhausted,
				URL:  rawURL,
				Err:  lastErr,
			}
		}

		fetchRetries.Inc()
		backoff := f.policy.Backoff(attempt)
		f.logger.Warn("fetch failed; retrying",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		f.pauser.Pause(ctx, backoff)
	}
}
