package iris

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthorized = errors.New("iris: unauthorized")
	ErrNotFound     = errors.New("iris: not found")
)

// APIError is a failed request: either a non-2xx HTTP status or a non-zero
// envelope status code.
type APIError struct {
	Endpoint   string
	HTTPStatus int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("iris %s: status %d code %d: %s", e.Endpoint, e.HTTPStatus, e.Code, e.Message)
	}
	return fmt.Sprintf("iris %s: status %d: %s", e.Endpoint, e.HTTPStatus, e.Message)
}

// Unwrap maps auth and lookup failures onto the package sentinels so
// callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch e.HTTPStatus {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}
