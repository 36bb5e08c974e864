package crawler

import (
	"errors"
	"fmt"
)

// Walk errors.
// They are carried in Outcome.Err and can be checked with errors.Is.
var (
	// ErrUnexpectedShape is returned when a page does not match the schema.
	ErrUnexpectedShape = errors.New("unexpected page shape")

	// ErrTransport is returned when a page could not be fetched.
	ErrTransport = errors.New("transport error")

	// ErrRemoteRejection is returned when the server answered with an error status.
	ErrRemoteRejection = errors.New("request rejected by server")

	// ErrDisallowed is returned when robots.txt forbids the listing path.
	ErrDisallowed = errors.New("disallowed by robots.txt")

	// ErrBodyTooLarge is returned when a page exceeds the body size limit.
	// A cut page may have lost its next link, so it is never parsed.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrTooManyRedirects is returned when a request is redirected more than 10 times.
	ErrTooManyRedirects = errors.New("too many redirects")
)

// StatusError reports an HTTP status of 400 or above.
type StatusError struct {
	// URL is the page that was requested.
	URL string

	// Code is the HTTP status code returned.
	Code int
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d for %s", ErrRemoteRejection, e.Code, e.URL)
}

// Unwrap allows errors.Is(err, ErrRemoteRejection).
func (e *StatusError) Unwrap() error {
	return ErrRemoteRejection
}

// shapeError wraps a schema failure with ErrUnexpectedShape.
func shapeError(pageURL string, err error) error {
	if errors.Is(err, ErrUnexpectedShape) {
		return fmt.Errorf("%s: %w", pageURL, err)
	}
	return fmt.Errorf("%s: %w: %w", pageURL, ErrUnexpectedShape, err)
}
