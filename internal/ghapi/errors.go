package ghapi

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies API failures by how callers should react to them.
type ErrorKind string

// All API error kinds.
const (
	RateLimited  ErrorKind = "rate_limited"
	NotFound     ErrorKind = "not_found"
	Forbidden    ErrorKind = "forbidden"
	Transient    ErrorKind = "transient"
	Unauthorized ErrorKind = "unauthorized"
	Unexpected   ErrorKind = "unexpected"
)

// APIError is returned by every Client call that did not succeed.
type APIError struct {
	Kind     ErrorKind
	Status   int
	Path     string
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s %s (status %d, %d attempts): %v", e.Kind, e.Path, e.Status, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s %s (%d attempts): %v", e.Kind, e.Path, e.Attempts, e.Err)
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error { return e.Err }

// KindOf returns the kind of an APIError anywhere in err's chain, or empty.
func KindOf(err error) ErrorKind {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// IsRateLimited reports whether err is a rate-limit failure.
func IsRateLimited(err error) bool { return KindOf(err) == RateLimited }

// IsTransient reports whether err is a transport or 5xx failure.
func IsTransient(err error) bool { return KindOf(err) == Transient }

// IsNotFound reports whether err is a 404 or 410.
func IsNotFound(err error) bool { return KindOf(err) == NotFound }

// kindForStatus maps a final HTTP status to an error kind.
func kindForStatus(status int) ErrorKind {
	switch status {
	case http.StatusTooManyRequests:
		return RateLimited
	case http.StatusNotFound, http.StatusGone:
		return NotFound
	case http.StatusForbidden:
		return Forbidden
	case http.StatusUnauthorized:
		return Unauthorized
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return Transient
	default:
		return Unexpected
	}
}
