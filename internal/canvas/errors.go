package canvas

import (
	"errors"
	"fmt"
)

// ErrUnauthorized marks list endpoints that answered with an unauthorized
// status envelope. Courses routinely deny access to single tabs (files,
// discussions) while the rest mirrors fine, so callers treat this as "course
// has none" rather than a failure.
var ErrUnauthorized = errors.New("canvas: unauthorized")

// StatusError is the error envelope Canvas returns in place of a list when an
// endpoint is closed to the caller.
type StatusError struct {
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("canvas: status %q", e.Status)
}

// Unwrap maps the unauthorized envelope onto ErrUnauthorized so callers can
// match it with errors.Is.
func (e *StatusError) Unwrap() error {
	if e.Status == "unauthorized" {
		return ErrUnauthorized
	}
	return nil
}
