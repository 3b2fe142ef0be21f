package bookshelf

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrNotFound is matched by API errors for unknown bookshelves or books
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is matched by API errors for invalid or expired edit tokens
	ErrUnauthorized = errors.New("unauthorized")
	// ErrValidation is matched by API errors carrying field errors
	ErrValidation = errors.New("validation failed")
	// ErrMissingToken is returned before any request is made when an owner call has no token
	ErrMissingToken = errors.New("edit token is required")
	// ErrResponseTooLarge is returned when a response body exceeds the client's read limit
	ErrResponseTooLarge = errors.New("response too large")
)

// Error codes reported by the API in the envelope
const (
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeInvalidToken = "INVALID_TOKEN"
	CodeValidation   = "VALIDATION_ERROR"
)

// APIError is an error reported by the bookshelf API
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "api error (status %d", e.StatusCode)
	if e.Code != "" {
		fmt.Fprintf(&b, ", code %s", e.Code)
	}
	fmt.Fprintf(&b, "): %s", msg)

	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+e.Fields[k])
		}
		fmt.Fprintf(&b, " [%s]", strings.Join(parts, "; "))
	}
	return b.String()
}

// Is lets errors.Is match the package sentinels
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound || e.Code == CodeNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden ||
			e.Code == CodeUnauthorized || e.Code == CodeInvalidToken
	case ErrValidation:
		return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity ||
			e.Code == CodeValidation
	}
	return false
}

// IsAccessError reports whether err means the public ID or token no longer
// grants access, as opposed to a transient failure
func IsAccessError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnauthorized)
}

// FieldErrors returns the per-field validation messages carried by err, if any
func FieldErrors(err error) map[string]string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Fields
	}
	return nil
}
