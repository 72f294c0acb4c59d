package types

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorKind classifies engine failures so callers can react without
// parsing message strings.
type ErrorKind string

const (
	ErrNotFound               ErrorKind = "not_found"
	ErrForbidden              ErrorKind = "forbidden"
	ErrInvalidStateTransition ErrorKind = "invalid_state_transition"
	ErrValidation             ErrorKind = "validation"
	ErrConflict               ErrorKind = "conflict"
)

// Error is the typed error returned by every engine operation.
// CurrentStatus is populated for failed approval transitions so the caller
// can explain to the user why the transition was refused.
type Error struct {
	Kind          ErrorKind `json:"kind"`
	Message       string    `json:"message"`
	CurrentStatus string    `json:"currentStatus,omitempty"`
}

func (e *Error) Error() string {
	if e.CurrentStatus != "" {
		return fmt.Sprintf("%s: %s [current status: %s]", e.Kind, e.Message, e.CurrentStatus)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// HTTPStatus maps the error kind to an HTTP status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case ErrNotFound:
		return fiber.StatusNotFound
	case ErrForbidden:
		return fiber.StatusForbidden
	case ErrValidation:
		return fiber.StatusBadRequest
	case ErrInvalidStateTransition, ErrConflict:
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

// NewNotFound creates a not_found error
func NewNotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

// NewForbidden creates a forbidden error
func NewForbidden(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrForbidden, Message: fmt.Sprintf(format, args...)}
}

// NewValidation creates a validation error
func NewValidation(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

// NewConflict creates a conflict error
func NewConflict(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

// NewInvalidTransition creates an invalid_state_transition error carrying
// the approval status observed at failure time.
func NewInvalidTransition(currentStatus string, format string, args ...interface{}) *Error {
	return &Error{
		Kind:          ErrInvalidStateTransition,
		Message:       fmt.Sprintf(format, args...),
		CurrentStatus: currentStatus,
	}
}

// KindOf extracts the ErrorKind from err, or "" when err is not an engine error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
