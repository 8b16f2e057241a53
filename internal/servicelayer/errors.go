package servicelayer

import (
	"errors"
	"fmt"
)

// Common Service Layer errors
var (
	// ErrMissingSession is returned when a request is made before a session id
	// was set or obtained through Login.
	ErrMissingSession = errors.New("no Service Layer session")

	// ErrLoginFailed is returned when the Service Layer rejects the credentials.
	ErrLoginFailed = errors.New("Service Layer login failed")

	// ErrInvalidResponse is returned when a response body is not valid JSON.
	ErrInvalidResponse = errors.New("invalid Service Layer response")
)

// TransportError wraps failures of the HTTP exchange itself.
type TransportError struct {
	// Op is the operation that failed (e.g., "Post", "Login").
	Op string

	// Path is the Service Layer path that was called.
	Path string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("servicelayer: %s %s failed: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a new TransportError.
func NewTransportError(op, path string, err error) *TransportError {
	return &TransportError{
		Op:   op,
		Path: path,
		Err:  err,
	}
}
