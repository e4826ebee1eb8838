// Package errors provides domain-specific error types and sentinel errors
// for improved error handling across the application.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrMissingSender indicates a webhook event arrived without a sender PSID.
	ErrMissingSender = errors.New("missing sender id")

	// ErrUnknownPayload indicates a quick-reply or postback token outside the catalog.
	ErrUnknownPayload = errors.New("unknown payload token")

	// ErrRateLimitExceeded indicates the per-sender rate limit has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrSendExhausted indicates all delivery attempts for a message failed.
	ErrSendExhausted = errors.New("send attempts exhausted")

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timed out")
)

// GraphError represents a Facebook Graph API failure with context.
type GraphError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *GraphError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("graph api error (endpoint=%s, status=%d): %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("graph api error (endpoint=%s): %v", e.Endpoint, e.Err)
}

func (e *GraphError) Unwrap() error {
	return e.Err
}

// NewGraphError creates a new Graph API error.
func NewGraphError(endpoint string, statusCode int, err error) *GraphError {
	return &GraphError{
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Err:        err,
	}
}

// Retryable reports whether the Graph API response status is worth retrying.
// Server-side failures and throttling are transient; other client errors are not.
func (e *GraphError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
