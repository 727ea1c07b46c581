package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrAuthRequired is returned before any transport when an authenticated
	// call is attempted without a token.
	ErrAuthRequired = errors.New("no authentication token found, please login again")
	// ErrValidation marks a request rejected before transport.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound matches a 404 from the backend.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized matches a 401 or 403 from the backend.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnavailable wraps transport failures (no response at all).
	ErrUnavailable = errors.New("server unavailable")
)

// StatusError is a non-success backend response.
type StatusError struct {
	Op         string
	StatusCode int
	// Body is the raw response body.
	Body string
	// Message is the JSON message/error field when the body is a JSON
	// object carrying one, otherwise the trimmed body.
	Message string
	// Resource names the entity a lookup targeted, e.g. "issue with ID 7".
	Resource string
}

func (e *StatusError) Error() string {
	if e.StatusCode == http.StatusNotFound && e.Resource != "" {
		return fmt.Sprintf("%s not found (status: %d)", e.Resource, e.StatusCode)
	}
	return fmt.Sprintf("%s: HTTP error! status: %d, message: %s", e.Op, e.StatusCode, e.Message)
}

// Is lets callers match on errors.Is(err, ErrNotFound) and
// errors.Is(err, ErrUnauthorized).
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	default:
		return false
	}
}

func newStatusError(op string, code int, body []byte, resource string) *StatusError {
	raw := string(body)
	return &StatusError{
		Op:         op,
		StatusCode: code,
		Body:       raw,
		Message:    errorMessage(body),
		Resource:   resource,
	}
}

func errorMessage(body []byte) string {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err == nil {
		for _, key := range []string{"message", "error"} {
			if s, ok := obj[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return strings.TrimSpace(string(body))
}

// StatusCode extracts the HTTP status from err, or 0 when err is not a
// backend response error.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
