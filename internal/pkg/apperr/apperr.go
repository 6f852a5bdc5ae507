// Package apperr defines the error kinds surfaced by the purchase core.
//
// Every *Error carries the exact message shown to callers and matches its kind
// through errors.Is, so transport layers can branch on the kind while clients
// receive the human message unchanged.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a malformed request rejected before any mutation.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a referenced entity that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientResource marks missing credits or ticket inventory.
	ErrInsufficientResource = errors.New("insufficient resource")

	// ErrUnauthorized marks access to a resource the caller does not own.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict marks a duplicate attempt of an operation that already ran.
	ErrConflict = errors.New("conflict")

	// ErrTransactionFailed marks a failure of the transactional scope itself.
	ErrTransactionFailed = errors.New("transaction failed")
)

// Error is a kinded error with a caller-facing message.
type Error struct {
	kind    error
	message string
	cause   error
}

func (e *Error) Error() string { return e.message }

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool { return target == e.kind }

func (e *Error) Unwrap() error { return e.cause }

// Kind returns the sentinel kind.
func (e *Error) Kind() error { return e.kind }

func newf(kind error, format string, args ...any) *Error {
	return &Error{kind: kind, message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return newf(ErrValidation, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newf(ErrNotFound, format, args...)
}

func Insufficient(format string, args ...any) *Error {
	return newf(ErrInsufficientResource, format, args...)
}

func Unauthorized(format string, args ...any) *Error {
	return newf(ErrUnauthorized, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newf(ErrConflict, format, args...)
}

// Transaction wraps a store failure so the original cause stays reachable.
func Transaction(cause error, format string, args ...any) *Error {
	e := newf(ErrTransactionFailed, format, args...)
	e.cause = cause
	if cause != nil {
		e.message = e.message + ": " + cause.Error()
	}
	return e
}

// KindOf returns the sentinel kind of err, or nil for untyped errors.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return nil
}
