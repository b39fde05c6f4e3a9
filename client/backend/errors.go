package backend

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
)

var (
	ErrEmptyTaskID   = errors.New("empty task id")
	ErrInvalidTaskID = errors.New("invalid task id")
	ErrMissingBase   = errors.New("base currency is required")
)

// Error codes that mean the bearer token is no longer usable.
var sessionErrorCodes = map[string]bool{
	"invalid_token_signature": true,
	"token_expired":           true,
	"unauthorized":            true,
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	switch {
	case e.Message != "" && e.Code != "":
		return fmt.Sprintf("http %d: %s (%s)", e.StatusCode, e.Message, e.Code)
	case e.Message != "":
		return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
	}
}

// SessionExpired reports whether the response means the token must be dropped.
func (e *APIError) SessionExpired() bool {
	return e.StatusCode == http.StatusUnauthorized && sessionErrorCodes[e.Code]
}

// IsTransient reports whether repeating the same read could succeed:
// transport failures, 429 and 5xx responses.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, io.ErrUnexpectedEOF)
}
