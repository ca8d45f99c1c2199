package backend

import (
	"errors"
	"fmt"
)

// Sentinel errors for backend operations.
var (
	ErrCollectionNotFound = errors.New("backend: collection not found")
	ErrUnauthorized       = errors.New("backend: unauthorized")
	ErrBadRequest         = errors.New("backend: bad request")
	ErrUnavailable        = errors.New("backend: unavailable")
)

// Op constants name the backend endpoints for error context.
const (
	OpSearch = "search"
	OpHealth = "health"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// StatusError reports a non-success HTTP status from the backend, keeping the
// server-provided message for diagnostics.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

// Is maps well-known status codes onto the sentinel errors.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrCollectionNotFound:
		return e.StatusCode == 404
	case ErrUnauthorized:
		return e.StatusCode == 401 || e.StatusCode == 403
	case ErrBadRequest:
		return e.StatusCode == 400
	case ErrUnavailable:
		return e.StatusCode == 503
	}
	return false
}
