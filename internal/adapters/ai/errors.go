package ai

import (
	"context"
	"fmt"
	"net"

	"foreman/pkg/errors"
)

// APIError is returned when a provider responds with a non-2xx status.
type APIError struct {
	Provider   ProviderName
	StatusCode int
	Detail     string
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.StatusCode, e.Detail)
}

// Unwrap marks API errors as external service failures.
func (e *APIError) Unwrap() error {
	return errors.ErrExternal
}

// RateLimitError is returned when the local rate limiter rejects a request.
type RateLimitError struct {
	Provider ProviderName
	Limit    float64
	Err      error
}

// Error implements the error interface
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit for provider %s (%.0f req/min): %v", e.Provider, e.Limit, e.Err)
}

// Unwrap returns the underlying error
func (e *RateLimitError) Unwrap() error {
	return errors.ErrRateLimitExceeded
}

// IsTimeout reports whether err represents a request deadline expiry rather
// than a protocol-level failure. Both count as attempt failures for the
// router but are surfaced distinctly in logs and metrics.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, errors.ErrTimeout) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
