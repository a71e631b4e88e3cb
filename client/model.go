package client

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// maxErrBodySize caps the amount of response body read when
	// building an error for an unexpected status code. This prevents
	// unbounded memory usage when a large response arrives with a
	// wrong status.
	maxErrBodySize = 4 << 10 // 4KB

	defaultMaxBodySize = 10 << 20

	// RequestIDHeader carries the id generated for every outbound call.
	RequestIDHeader = "X-Request-ID"
)

// execFn represents a func to operate on a response.
type execFn func(response *http.Response) error

var (
	// ErrUnexpectedStatusCode is the sentinel error wrapped by [UnexpectedStatusError].
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	// ErrAuthFailure is also matched by an [UnexpectedStatusError] for
	// 401 Unauthorized or 403 Forbidden.
	ErrAuthFailure = errors.New("auth failure")
	// ErrRemoteUnavailable marks transport failures, 5xx and 429 responses.
	// Callers may retry with backoff.
	ErrRemoteUnavailable = errors.New("remote unavailable")
	// ErrMalformedResponse marks a response body that does not have the
	// expected shape.
	ErrMalformedResponse = errors.New("malformed response")
)

// UnexpectedStatusError is returned when the HTTP response status code
// does not match the expected value.
type UnexpectedStatusError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("%v: %d, body: %s", e.Err, e.StatusCode, e.Body)
}

// Unwrap exposes Err along with the class of failure the status implies.
func (e *UnexpectedStatusError) Unwrap() []error {
	errs := []error{e.Err}

	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		errs = append(errs, ErrAuthFailure)
	case e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError:
		errs = append(errs, ErrRemoteUnavailable)
	}

	return errs
}
