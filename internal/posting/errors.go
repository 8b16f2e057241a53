package posting

import (
	"errors"
	"fmt"
	"strings"

	"b1poster/internal/document"
)

// ErrCompensationFailed is matched by every CompensationFailure.
var ErrCompensationFailed = errors.New("compensation failed")

// CompensationFailure records a document that could not be reversed.
type CompensationFailure struct {
	Kind     document.Kind
	DocEntry int
	Message  string
}

// Error implements the error interface.
func (f CompensationFailure) Error() string {
	return fmt.Sprintf("posting: compensate %s %d failed: %s", f.Kind, f.DocEntry, f.Message)
}

// Is matches ErrCompensationFailed.
func (f CompensationFailure) Is(target error) bool {
	return target == ErrCompensationFailed
}

// CompensationFailures is the list of failures of one rollback, in the
// order the compensation steps ran.
type CompensationFailures []CompensationFailure

// Error implements the error interface.
func (fs CompensationFailures) Error() string {
	msgs := make([]string, len(fs))
	for i, f := range fs {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("%d compensation step(s) failed: %s", len(fs), strings.Join(msgs, "; "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (fs CompensationFailures) Unwrap() []error {
	errs := make([]error, len(fs))
	for i, f := range fs {
		errs[i] = f
	}
	return errs
}
