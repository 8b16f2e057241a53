package document

import (
	"errors"
	"fmt"
)

// Common document building errors
var (
	// ErrInvalidRequest is returned when a request lacks a required field or
	// carries a malformed value.
	ErrInvalidRequest = errors.New("invalid posting request")

	// ErrUnknownKind is returned when an object type code or kind name does not
	// match a supported document kind.
	ErrUnknownKind = errors.New("unknown document kind")
)

// InvalidRequestError describes why a request could not be turned into a
// payload.
type InvalidRequestError struct {
	// Kind is the document kind being built.
	Kind Kind

	// Field is the request field at fault.
	Field string

	// Reason explains the failure.
	Reason string

	// Err is an optional underlying error.
	Err error
}

// Error implements the error interface.
func (e *InvalidRequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("document: build %s: field '%s': %s: %v", e.Kind, e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("document: build %s: field '%s': %s", e.Kind, e.Field, e.Reason)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *InvalidRequestError) Unwrap() error {
	return e.Err
}

// Is matches ErrInvalidRequest as well as the wrapped error.
func (e *InvalidRequestError) Is(target error) bool {
	return target == ErrInvalidRequest || errors.Is(e.Err, target)
}

// NewInvalidRequestError creates an InvalidRequestError.
func NewInvalidRequestError(kind Kind, field, reason string, err error) *InvalidRequestError {
	return &InvalidRequestError{
		Kind:   kind,
		Field:  field,
		Reason: reason,
		Err:    err,
	}
}
