package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError is a response with status >= 400.
type HTTPError struct {
	Status  int
	Message string
	Body    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

// NetworkError wraps a transport failure or timeout. The request may or may
// not have reached the backend.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ParseError reports a body that fits none of the accepted envelope shapes.
type ParseError struct {
	Reason string
	Body   string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse response: %s: %v (body: %s)", e.Reason, e.Err, e.Body)
	}
	return fmt.Sprintf("parse response: %s (body: %s)", e.Reason, e.Body)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func IsUnauthorized(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.Status == http.StatusUnauthorized
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return 0
}
