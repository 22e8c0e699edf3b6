package model

import (
	"errors"
	"fmt"

	"github.com/lwm2m-go/lwm2m-client/pkg/wire"
)

// Error is a failure carrying a response status.
type Error struct {
	Status  wire.Status
	Message string
	Err     error
}

// Status sentinels for errors.Is comparisons.
var (
	ErrNotFound            = &Error{Status: wire.StatusNotFound}
	ErrMethodNotAllowed    = &Error{Status: wire.StatusMethodNotAllowed}
	ErrUnauthorized        = &Error{Status: wire.StatusUnauthorized}
	ErrBadRequest          = &Error{Status: wire.StatusBadRequest}
	ErrInternalServerError = &Error{Status: wire.StatusInternalServerError}
	ErrNotImplemented      = &Error{Status: wire.StatusNotImplemented}
	ErrServiceUnavailable  = &Error{Status: wire.StatusServiceUnavailable}
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Status.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches a sentinel with the same status.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Message == "" && t.Err == nil && t.Status == e.Status
}

func newError(status wire.Status, format string, args ...any) error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing URI or an empty pattern match.
func NotFound(format string, args ...any) error {
	return newError(wire.StatusNotFound, format, args...)
}

// MethodNotAllowed reports an ACL or kind violation.
func MethodNotAllowed(format string, args ...any) error {
	return newError(wire.StatusMethodNotAllowed, format, args...)
}

// Unauthorized reports a remote operation without permission.
func Unauthorized(format string, args ...any) error {
	return newError(wire.StatusUnauthorized, format, args...)
}

// BadRequest reports malformed input or an invalid conversion.
func BadRequest(format string, args ...any) error {
	return newError(wire.StatusBadRequest, format, args...)
}

// NotImplemented reports an unsupported kind.
func NotImplemented(format string, args ...any) error {
	return newError(wire.StatusNotImplemented, format, args...)
}

// ServiceUnavailable reports a store that never became ready.
func ServiceUnavailable(format string, args ...any) error {
	return newError(wire.StatusServiceUnavailable, format, args...)
}

// InternalServerError wraps a failure that carries no status of its own.
func InternalServerError(err error) error {
	return &Error{Status: wire.StatusInternalServerError, Message: "internal server error", Err: err}
}

// StatusOf extracts the status of err, or fallback when err carries none.
func StatusOf(err error, fallback wire.Status) wire.Status {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return fallback
}

// withStatus keeps errors that already carry a status and wraps the rest.
func withStatus(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return InternalServerError(err)
}
