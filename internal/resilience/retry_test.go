package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastPolicy keeps test sleeps in the millisecond range.
func fastPolicy() Policy {
	return Policy{
		MaxAttempts:        3,
		RateLimitBackoff:   2 * time.Millisecond,
		ServerErrorBackoff: 1 * time.Millisecond,
	}
}

func TestDoVal_SucceedsFirstTry(t *testing.T) {
	calls := 0
	got, err := DoVal(context.Background(), fastPolicy(), func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, calls)
}

func TestDoVal_RetriesRateLimitThenSucceeds(t *testing.T) {
	calls := 0
	got, err := DoVal(context.Background(), fastPolicy(), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", NewStatusError(429, "rate limit exceeded")
		}
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", got)
	assert.Equal(t, 3, calls)
}

func TestDoVal_NoRetryOnClientError(t *testing.T) {
	calls := 0
	_, err := DoVal(context.Background(), fastPolicy(), func(ctx context.Context) (string, error) {
		calls++
		return "", NewStatusError(401, "invalid key")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "4xx other than 429 must not be retried")
}

func TestDoVal_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := DoVal(context.Background(), fastPolicy(), func(ctx context.Context) (string, error) {
		calls++
		return "", NewStatusError(503, "unavailable")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 503, StatusCode(err))
}

func TestDoVal_ContextCancellationStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := DoVal(ctx, fastPolicy(), func(ctx context.Context) (string, error) {
		calls++
		cancel()
		return "", NewStatusError(500, "boom")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestBackoff_ClassBases(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 2*time.Second, p.Backoff(0, NewStatusError(429, "")))
	assert.Equal(t, 4*time.Second, p.Backoff(1, NewStatusError(429, "")))
	assert.Equal(t, 1*time.Second, p.Backoff(0, NewStatusError(500, "")))
	assert.Equal(t, 2*time.Second, p.Backoff(1, NewStatusError(502, "")))
	assert.Equal(t, 1*time.Second, p.Backoff(0, eris.New("network down")))
}

func TestRetryable(t *testing.T) {
	assert.False(t, Retryable(nil))
	assert.True(t, Retryable(NewStatusError(429, "")))
	assert.True(t, Retryable(NewStatusError(500, "")))
	assert.False(t, Retryable(NewStatusError(400, "")))
	assert.False(t, Retryable(NewStatusError(404, "")))
	assert.True(t, Retryable(eris.New("connection reset by peer")))
}

func TestStatusError_BodyTruncated(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	se := NewStatusError(500, string(long))
	assert.Len(t, se.Body, 200)
}
