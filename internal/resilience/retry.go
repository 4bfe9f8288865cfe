package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Policy controls retry behavior for provider calls. Backoff doubles after
// each attempt; the base depends on the failure class because rate limits
// want longer cool-downs than transient server errors.
type Policy struct {
	// MaxAttempts is the total number of attempts including the first.
	// Default: 3.
	MaxAttempts int

	// RateLimitBackoff is the base delay after an HTTP 429. Default: 2s.
	RateLimitBackoff time.Duration

	// ServerErrorBackoff is the base delay after a 5xx or network failure.
	// Default: 1s.
	ServerErrorBackoff time.Duration

	// OnRetry is called before each backoff sleep.
	OnRetry func(attempt int, err error)
}

// DefaultPolicy returns the standard provider retry policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:        3,
		RateLimitBackoff:   2 * time.Second,
		ServerErrorBackoff: 1 * time.Second,
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.RateLimitBackoff <= 0 {
		p.RateLimitBackoff = 2 * time.Second
	}
	if p.ServerErrorBackoff <= 0 {
		p.ServerErrorBackoff = 1 * time.Second
	}
	return p
}

// Backoff returns the delay before the retry following the given zero-based
// attempt, classified by the error that failed it.
func (p Policy) Backoff(attempt int, err error) time.Duration {
	base := p.ServerErrorBackoff
	if IsRateLimited(err) {
		base = p.RateLimitBackoff
	}
	return base << attempt
}

// DoVal executes fn up to MaxAttempts times, sleeping between attempts
// according to the failure class. Non-retryable errors and context
// cancellation stop immediately.
func DoVal[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()

	var zero T
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, lastErr
		}
		if !Retryable(lastErr) {
			return zero, lastErr
		}
		if attempt >= p.MaxAttempts-1 {
			break
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt+1, lastErr)
		}

		timer := time.NewTimer(p.Backoff(attempt, lastErr))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}

	return zero, lastErr
}

// RetryLogger returns an OnRetry callback that logs each retry attempt.
func RetryLogger(provider, modelID string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying model call",
			zap.String("provider", provider),
			zap.String("model", modelID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
