package crawler

import (
	"errors"
	"fmt"
)

// ErrMalformedURL marks URLs that cannot be parsed into a scheme and host.
// Links failing this way are dropped from the frontier, never fetched.
var ErrMalformedURL = errors.New("malformed url")

// ErrorKind classifies fetch failures for the retry policy.
type ErrorKind string

const (
	// KindNetworkTimeout covers transport-level timeouts; retryable.
	KindNetworkTimeout ErrorKind = "network_timeout"
	// KindRateLimited covers HTTP 429 responses; retryable.
	KindRateLimited ErrorKind = "rate_limited"
	// KindServerError covers HTTP 500/502/503/504 responses; retryable.
	KindServerError ErrorKind = "server_error"
	// KindClientError covers all other 4xx responses; never retried.
	KindClientError ErrorKind = "client_error"
	// KindRenderTimeout covers headless render deadline expiry; retryable.
	KindRenderTimeout ErrorKind = "render_timeout"
	// KindExhausted is the terminal state after all retry attempts failed.
	KindExhausted ErrorKind = "exhausted"
)

// FetchError is the typed failure returned by fetchers and the retry wrapper.
type FetchError struct {
	Kind       ErrorKind
	URL        string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %s (status %d)", e.URL, e.Kind, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to an ErrorKind. Only 429 and the
// transient 5xx family are retryable; everything else fails the task at once.
func classifyStatus(code int) ErrorKind {
	switch code {
	case 429:
		return KindRateLimited
	case 500, 502, 503, 504:
		return KindServerError
	default:
		return KindClientError
	}
}

// retryableKind reports whether failures of this kind may be retried.
func retryableKind(kind ErrorKind) bool {
	switch kind {
	case KindNetworkTimeout, KindRateLimited, KindServerError, KindRenderTimeout:
		return true
	default:
		return false
	}
}
