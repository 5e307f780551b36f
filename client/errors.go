package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrSessionEnded is returned by Do when the session was ended (signed out) while a
// request that later failed with 401 was in flight.
var ErrSessionEnded = errors.New("session ended")

// APIError is returned when the API answers with a non-2xx status.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	// Detail is the "detail" field of the error body, when present.
	Detail string
	Body   string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s %s: unexpected HTTP status %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// IsUnauthorized reports whether err is an APIError carrying HTTP 401.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsNotFound reports whether err is an APIError carrying HTTP 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	apiErr := &APIError{Method: method, Path: path, StatusCode: status, Body: string(body)}
	var detail struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &detail) == nil {
		apiErr.Detail = detail.Detail
	}
	return apiErr
}

// NetworkError is returned when a call produced no HTTP response, including timeouts.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Timeout reports whether the call failed because it ran out of time.
func (e *NetworkError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}
