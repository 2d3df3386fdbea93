package tessera

import (
	"errors"
	"fmt"
)

// ErrorType classifies driver errors.
type ErrorType int

const (
	// ErrConnection is a failure to establish or authenticate a connection.
	ErrConnection ErrorType = iota
	// ErrQuery is a statement preparation or execution failure.
	ErrQuery
	// ErrNotFound means a referenced database object is absent.
	ErrNotFound
	// ErrNotSupported means the operation is not valid for this backend
	// or identifier shape.
	ErrNotSupported
	// ErrConfiguration means the connection parameters are invalid.
	ErrConfiguration
	// ErrIO is a filesystem-level failure for file-backed backends.
	ErrIO
)

func (t ErrorType) String() string {
	switch t {
	case ErrConnection:
		return "connection"
	case ErrQuery:
		return "query"
	case ErrNotFound:
		return "not found"
	case ErrNotSupported:
		return "not supported"
	case ErrConfiguration:
		return "configuration"
	case ErrIO:
		return "io"
	default:
		return "unknown"
	}
}

// Error is the structured error type every backend returns across the
// capability boundary. Backend-native errors are wrapped, never leaked.
type Error struct {
	Type    ErrorType
	Message string

	// Optional enrichment reported by the backend for query errors.
	Detail string
	Hint   string
	Column string

	// Wrapped cause, if any.
	Err error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("tessera: %s: %s (%s)", e.Type, e.Message, e.Detail)
	}
	return fmt.Sprintf("tessera: %s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error.
func NewError(typ ErrorType, message string) *Error {
	return &Error{Type: typ, Message: message}
}

// Errorf creates a new Error with a formatted message.
func Errorf(typ ErrorType, format string, args ...any) *Error {
	return &Error{Type: typ, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates a new Error wrapping a backend-native cause.
func WrapError(typ ErrorType, message string, cause error) *Error {
	return &Error{Type: typ, Message: message, Err: cause}
}

// IsError checks if an error is a tessera Error of a specific type.
func IsError(err error, typ ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == typ
}
