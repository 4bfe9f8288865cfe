// Package resilience provides the retry and circuit-breaking policy used for
// calls to model providers.
package resilience

import (
	"errors"
	"fmt"
	"net"
)

// StatusError carries the HTTP status of a failed provider call so the retry
// policy can classify it.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("provider returned status %d", e.Code)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.Code, e.Body)
}

// NewStatusError wraps an HTTP status and response fragment as an error.
func NewStatusError(code int, body string) *StatusError {
	if len(body) > 200 {
		body = body[:200]
	}
	return &StatusError{Code: code, Body: body}
}

// statusCarrier is implemented by provider client errors that carry an HTTP
// status (see pkg/openrouter and pkg/gemini APIError).
type statusCarrier interface {
	HTTPStatus() int
}

// StatusCode extracts the HTTP status from an error chain, or 0 if the error
// is not status-bearing (network failure, timeout).
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	var sc statusCarrier
	if errors.As(err, &sc) {
		return sc.HTTPStatus()
	}
	return 0
}

// IsRateLimited reports whether the error is an HTTP 429.
func IsRateLimited(err error) bool {
	return StatusCode(err) == 429
}

// Retryable reports whether the error is worth another attempt: rate limits,
// server-side errors, and network-level failures. Any other HTTP status is a
// definitive rejection and fails immediately.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if code := StatusCode(err); code != 0 {
		return code == 429 || code >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// Status-less errors from the HTTP client (connection reset, DNS) are
	// treated as transient; the attempt cap bounds the damage.
	return true
}
