package devin

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidSessionRef is returned when a string is neither a session
	// id nor a session web URL.
	ErrInvalidSessionRef = errors.New("invalid session reference")

	// ErrUnexpectedFormat is returned when a list endpoint answers with
	// something other than an array or an object wrapping one.
	ErrUnexpectedFormat = errors.New("unexpected response format")
)

// APIError is a non-2xx response from the API. Authentication failures,
// missing sessions and server errors all surface as this type.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d) for %s %s: %s", e.StatusCode, e.Method, e.Path, e.Body)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsUnauthorized reports whether err is a 401 or 403 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) &&
		(apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden)
}
