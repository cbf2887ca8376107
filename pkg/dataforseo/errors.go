package dataforseo

import (
	"errors"
	"fmt"
)

// ErrClientNotInitialized is returned when a query method is called before
// Open or after Close. This is a programmer error, not a retryable condition.
var ErrClientNotInitialized = errors.New("dataforseo: client not initialized, call Open first")

// InvalidArgumentError reports a caller-supplied parameter that violates a
// request precondition. It is always returned before any network I/O.
type InvalidArgumentError struct {
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return "dataforseo: invalid argument: " + e.Reason
}

func invalidArgument(format string, args ...interface{}) error {
	return &InvalidArgumentError{Reason: fmt.Sprintf(format, args...)}
}

// RequestError wraps a transport-level failure (connection refused, timeout,
// DNS). The client never retries; retry policy belongs to the caller.
type RequestError struct {
	Method   string
	Endpoint string
	Err      error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("dataforseo: %s %s request failed: %v", e.Method, e.Endpoint, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// MalformedResponseError reports a response body that was not valid JSON.
// Kept distinct from RequestError so callers can tell a broken wire apart
// from a provider that answered garbage.
type MalformedResponseError struct {
	Endpoint string
	Err      error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("dataforseo: malformed response from %s: %v", e.Endpoint, e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// ProviderError carries the provider's own status code and message when the
// response envelope does not report success.
type ProviderError struct {
	StatusCode    int
	StatusMessage string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("dataforseo: API error %d: %s", e.StatusCode, e.StatusMessage)
}
