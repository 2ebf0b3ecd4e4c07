package gateway

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the record does not exist.
var ErrNotFound = errors.New("record not found")

// APIError is the backend's error envelope. Error() returns the
// backend's own message verbatim so it can be surfaced to the user
// unchanged.
type APIError struct {
	Status  int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
