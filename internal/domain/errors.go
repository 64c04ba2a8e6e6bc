package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the service layer wraps exactly one of these.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal error")
)

// Error carries a human-readable message alongside its kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func InvalidInput(format string, args ...any) error {
	return &Error{Kind: ErrInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

func Internal(format string, args ...any) error {
	return &Error{Kind: ErrInternal, Message: fmt.Sprintf(format, args...)}
}

// Missing is the InvalidInput error for an absent required field.
func Missing(field string) error {
	return InvalidInput("%s is required", field)
}
