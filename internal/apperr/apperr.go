// Package apperr defines the error taxonomy surfaced to API callers.
// Every surfaced failure carries a stable machine-checkable code and a
// human-readable message; wrapped internal detail is logged, never
// returned to the caller.
package apperr

import (
	"errors"
	"fmt"
)

// Code identifies a failure class.
type Code string

const (
	CodeNotFound           Code = "not_found"
	CodeGenerationFailure  Code = "generation_failure"
	CodeExtractionFailure  Code = "extraction_failure"
	CodeMalformedResponse  Code = "malformed_response"
	CodePersistenceFailure Code = "persistence_failure"
	CodeInvalidRequest     Code = "invalid_request"
	CodeInternal           Code = "internal"
)

// Error couples a taxonomy code with a caller-facing message and an
// optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error with no wrapped cause.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error wrapping cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: cause}
}

// NotFound builds a not_found error for a missing exam record.
func NotFound(format string, args ...any) *Error {
	return New(CodeNotFound, format, args...)
}

// CodeOf extracts the taxonomy code from err, or CodeInternal when err
// is not an *Error.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// IsNotFound reports whether err carries the not_found code.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}
