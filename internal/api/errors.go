package api

import (
	"errors"
	"fmt"
)

// ErrNoToken indicates an authenticated call was attempted without stored
// token material.
var ErrNoToken = errors.New("not authenticated: no access token")

// APIError carries a non-2xx backend response. The backend reports errors
// as plain response body text, surfaced verbatim.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("backend error (status %d): %s", e.StatusCode, e.Body)
	}

	return fmt.Sprintf("backend error (status %d)", e.StatusCode)
}

// AuthError indicates the request failed authentication and the session
// was terminated. Distinct from a generic APIError so callers can force a
// logout exactly once.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// MalformedResponseError indicates the backend replied 2xx but the payload
// is missing required fields. Fatal for the operation, never retried.
type MalformedResponseError struct {
	Operation string
	Missing   string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: missing %s", e.Operation, e.Missing)
}

// IsAuthError reports whether err terminates the session.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
