package remote

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated is returned by operations that need a session when
// there is none.
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrUniqueViolation maps the backend's unique-constraint error (SQLSTATE
// 23505) so callers can treat duplicates as resolved conflicts.
var ErrUniqueViolation = errors.New("unique constraint violation")

// APIError is a non-2xx response from the backend row API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}
