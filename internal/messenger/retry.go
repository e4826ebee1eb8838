package messenger

import (
	"errors"
	"net"
	"net/url"
	"time"

	domerrors "github.com/horizonjapan/crewbot/internal/errors"
)

// RetryPolicy describes the bounded retry behavior for outbound sends:
// a fixed number of additional attempts with linear backoff.
type RetryPolicy struct {
	MaxRetries int           // Additional attempts after the first failure
	BaseDelay  time.Duration // Backoff unit; attempt n waits n * BaseDelay
}

// DefaultRetryPolicy matches the reference delivery behavior:
// 3 retries with 1s, 2s, 3s backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: time.Second}
}

// Backoff returns the delay before the given retry (1-indexed).
func (p RetryPolicy) Backoff(retry int) time.Duration {
	if retry < 1 {
		return 0
	}
	return time.Duration(retry) * p.BaseDelay
}

// shouldRetry reports whether an error is worth retrying.
// Transient transport failures and retryable Graph API statuses qualify;
// other client errors do not.
func shouldRetry(err error) bool {
	if err == nil {
		return false
	}

	var graphErr *domerrors.GraphError
	if errors.As(err, &graphErr) {
		if graphErr.StatusCode > 0 {
			return graphErr.Retryable()
		}
		// No HTTP status: transport-level failure beneath, inspect it
		return isTransient(graphErr.Err)
	}

	return isTransient(err)
}

// isTransient reports whether a network error is a transient dial/timeout
// failure produced by net/http.
func isTransient(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() || opErr.Op == "dial" {
			return true
		}
		if nested, ok := opErr.Err.(net.Error); ok && nested.Timeout() {
			return true
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true
		}
		if urlErr.Err != nil && !errors.Is(urlErr.Err, err) {
			return isTransient(urlErr.Err)
		}
	}

	return false
}
