package gateway

import (
	"errors"
	"fmt"
)

// ErrNotFound signals that no baseline definition is persisted for a
// category. It is a valid state, not a failure.
var ErrNotFound = errors.New("baseline definition not found")

// maxErrorBody caps how much of an error response body is kept.
const maxErrorBody = 512

// StatusError is returned for any non-2xx response that is not a
// distinguished not-found.
type StatusError struct {
	Op         string // operation name, e.g. "get results"
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// StatusCode extracts the HTTP status from err, or 0 when err carries none.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
