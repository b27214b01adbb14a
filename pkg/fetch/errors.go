package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInFlight is returned when the call site already has a request running.
	// It is a no-op signal rather than a failure.
	ErrInFlight = errors.New("fetch: request already in flight")
	// ErrCancelled is returned when the request was superseded or its context
	// was cancelled. Callers should drop the result silently.
	ErrCancelled = errors.New("fetch: request cancelled")

	ErrInvalidJSON = errors.New("fetch: response body is not valid JSON")
)

// HTTPError reports a non-2xx response.
type HTTPError struct {
	Status int
	Body   []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("fetch: HTTP %d %s", e.Status, http.StatusText(e.Status))
}

// NetworkError wraps transport level failures, including timeouts.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("fetch: network error: %v", e.Err) }

func (e *NetworkError) Unwrap() error { return e.Err }

// IsCancelled reports whether err means the request was superseded.
func IsCancelled(err error) bool { return errors.Is(err, ErrCancelled) }

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return 0
}
