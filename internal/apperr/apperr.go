// Package apperr defines the error taxonomy shared between services and the
// HTTP layer. Services return these; the HTTP layer maps them to responses.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation means the request was well formed but failed a
	// business rule. The HTTP layer surfaces its message to the caller.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthenticated means no valid session accompanied the request.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrPermission means the caller is authenticated but not allowed.
	ErrPermission = errors.New("permission denied")

	// ErrConflict means the request lost a race with a concurrent change.
	ErrConflict = errors.New("conflict")
)

// validationError carries a caller-facing message while still matching
// ErrValidation under errors.Is.
type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Is(target error) bool { return target == ErrValidation }

// Validationf builds a validation error whose message is safe to return to
// the caller verbatim.
func Validationf(format string, args ...any) error {
	return &validationError{msg: fmt.Sprintf(format, args...)}
}
