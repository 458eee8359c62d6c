// Package errs defines the error taxonomy shared by the data-access core.
//
// Configuration errors (unknown route, nullable path argument, wrong
// argument count) fail fast at the call site and are never retried.
// Execution errors wrap executor failures caught at a task boundary.
// Neither kind ever crosses an async boundary as a panic.
package errs

import (
	"errors"
	"fmt"
)

// Code categorizes errors.
type Code string

const (
	// CodeUnknownRoute indicates no registered route matches an identifier.
	CodeUnknownRoute Code = "UNKNOWN_ROUTE"

	// CodeDuplicateRoute indicates a pattern was registered twice.
	CodeDuplicateRoute Code = "DUPLICATE_ROUTE"

	// CodeNullableArgument indicates a nullable column was used as a path argument.
	CodeNullableArgument Code = "NULLABLE_ARGUMENT"

	// CodeArgumentCount indicates the wrong number of identifier arguments.
	CodeArgumentCount Code = "ARGUMENT_COUNT"

	// CodeWrongPath indicates an identifier does not have the route's shape.
	CodeWrongPath Code = "WRONG_PATH"

	// CodeInvalidArgument indicates a value that cannot be encoded or parsed.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"

	// CodeMissingValue indicates a required value was not supplied.
	CodeMissingValue Code = "MISSING_VALUE"

	// CodeExecution indicates the executor or a task failed.
	CodeExecution Code = "EXECUTION_FAILED"

	// CodeClosed indicates the component has been shut down.
	CodeClosed Code = "CLOSED"
)

// Error is a coded error with optional identifier context.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Identifier is the resource identifier involved, if any.
	Identifier string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Identifier != "" {
		msg = fmt.Sprintf("%s (identifier=%s)", msg, e.Identifier)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithIdentifier returns a copy of e carrying id.
func (e *Error) WithIdentifier(id string) *Error {
	cp := *e
	cp.Identifier = id
	return &cp
}

// Execution wraps err as an execution failure. Returns nil for nil err and
// leaves errors that already carry CodeExecution untouched.
func Execution(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if HasCode(err, CodeExecution) {
		return err
	}
	return &Error{Code: CodeExecution, Message: fmt.Sprintf(format, args...), Err: err}
}

// HasCode reports whether err (or anything it wraps) is an Error with code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsConfig reports whether err is a configuration error.
func IsConfig(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Code {
	case CodeUnknownRoute, CodeDuplicateRoute, CodeNullableArgument,
		CodeArgumentCount, CodeWrongPath, CodeInvalidArgument, CodeMissingValue:
		return true
	}
	return false
}

// IsExecution reports whether err is an execution error.
func IsExecution(err error) bool {
	return HasCode(err, CodeExecution)
}
