package store

import (
	"fmt"
)

// OpError records the operation, URI and value of a failed store call.
// It unwraps to the status-carrying cause.
type OpError struct {
	Op    string
	URI   string
	Value any
	Err   error
}

// Error implements the error interface.
func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URI, e.Err)
}

// Unwrap returns the underlying error.
func (e *OpError) Unwrap() error {
	return e.Err
}

func opError(op, uri string, value any, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, URI: uri, Value: value, Err: err}
}
