package types

import "fmt"

// ErrorCode represents a unified error code across the module.
type ErrorCode string

const (
	// ErrConfiguration marks errors detected before any job starts:
	// missing chain units, insufficient surface slots, bad viewpoint order.
	ErrConfiguration ErrorCode = "CONFIGURATION"
	// ErrConnection marks transport failures reaching the backend:
	// refused, unresolvable host, timeout, failed handshake.
	ErrConnection ErrorCode = "CONNECTION"
	// ErrBackendExecution marks failures the backend reports while
	// executing a graph. Local panics during orchestration are folded into
	// this code as well.
	ErrBackendExecution ErrorCode = "BACKEND_EXECUTION"
	// ErrCancelled marks an operator-triggered interruption. It is a
	// distinct outcome, never surfaced as a failure.
	ErrCancelled ErrorCode = "CANCELLED"
	// ErrGraphInvalid marks a graph that failed builder validation.
	ErrGraphInvalid ErrorCode = "GRAPH_INVALID"
	// ErrRunActive marks an attempt to start a run while one is active.
	ErrRunActive ErrorCode = "RUN_ACTIVE"
)

// Error represents a structured error with code, message, and cause.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}

// IsCancelled reports whether err represents an operator cancellation.
func IsCancelled(err error) bool {
	return GetErrorCode(err) == ErrCancelled
}
