package platform

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned when a container, file or project is missing.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable wraps transport failures (connection refused, DNS,
	// timeouts) where the platform could not be reached at all.
	ErrUnavailable = errors.New("platform unavailable")
)

// APIError is a non-2xx response from the platform.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}

	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, msg)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// IsNotFound reports whether err means the target does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsFatal reports whether err means the run cannot continue: the platform
// is unreachable or rejected the credentials.
func IsFatal(err error) bool {
	if errors.Is(err, ErrUnavailable) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
	}

	return false
}
