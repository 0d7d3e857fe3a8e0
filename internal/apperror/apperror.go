// Package apperror defines the domain error taxonomy shared by all layers.
// Services return these; the HTTP layer maps them to status codes.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation error")
	ErrConflict         = errors.New("conflict")
	ErrForbidden        = errors.New("forbidden")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrLockHeld         = errors.New("lock held")
	ErrNotCurrentEditor = errors.New("not current editor")
)

// AppError carries a sentinel plus a human-readable message. Handlers use
// errors.Is against the sentinel for the status code and show Message to the
// user.
type AppError struct {
	Err     error
	Message string
	Field   string // optional: field causing a validation error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthenticated returns the error surfaced as a prompt to log in.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}

// LockHeld reports that another identity currently owns a story's edit lock.
// It is terminal: callers must surface it to the user, never retry silently.
func LockHeld(storyID string) *AppError {
	return &AppError{
		Err:     ErrLockHeld,
		Message: "Story is being edited by another user",
	}
}

// NotCurrentEditor reports a release or commit by someone who does not hold
// the lock. It usually means the client's view of the lock is stale.
func NotCurrentEditor() *AppError {
	return &AppError{
		Err:     ErrNotCurrentEditor,
		Message: "You are not the current editor",
	}
}
