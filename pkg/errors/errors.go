package errors

import (
	"fmt"
	"runtime"
	"strings"
)

// Error is the base interface for all custom errors in the system.
// It extends the standard error interface with additional context.
type Error interface {
	error
	// Code returns the error code
	Code() string
	// Message returns the human-readable error message
	Message() string
	// Unwrap returns the underlying cause
	Unwrap() error
}

// BaseError provides a foundation for all typed errors.
type BaseError struct {
	code    string
	message string
	cause   error
	stack   []uintptr
}

// Error implements the error interface.
func (e *BaseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the error code.
func (e *BaseError) Code() string {
	return e.code
}

// Message returns the error message.
func (e *BaseError) Message() string {
	return e.message
}

// Unwrap returns the underlying cause.
func (e *BaseError) Unwrap() error {
	return e.cause
}

// Stack returns the captured stack trace.
func (e *BaseError) Stack() []uintptr {
	return e.stack
}

// captureStack captures the current stack trace.
func captureStack(skip int) []uintptr {
	const maxDepth = 32
	stack := make([]uintptr, maxDepth)
	n := runtime.Callers(skip+2, stack)
	return stack[:n]
}

// StackTrace returns a formatted stack trace string.
func (e *BaseError) StackTrace() string {
	if len(e.stack) == 0 {
		return ""
	}

	var buf strings.Builder
	frames := runtime.CallersFrames(e.stack)
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			fmt.Fprintf(&buf, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		}
		if !more {
			break
		}
	}
	return buf.String()
}

// NullMessageError represents a publish call made with a nil message.
type NullMessageError struct {
	*BaseError
}

// NewNullMessageError creates a new null message error.
func NewNullMessageError() *NullMessageError {
	return &NullMessageError{
		BaseError: &BaseError{
			code:    CodeNullMessage,
			message: "publish called with a nil message",
			stack:   captureStack(1),
		},
	}
}

// ReflectionFailureError represents a failure to build handler descriptors
// for a listener class. The listener's class is treated as a non-listener
// for the remainder of the process lifetime once this occurs.
type ReflectionFailureError struct {
	*BaseError
	ListenerType string
}

// NewReflectionFailureError creates a new reflection failure error.
func NewReflectionFailureError(listenerType string, cause error) *ReflectionFailureError {
	return &ReflectionFailureError{
		BaseError: &BaseError{
			code:    CodeReflectionFailure,
			message: fmt.Sprintf("failed to describe listener type %s", listenerType),
			cause:   cause,
			stack:   captureStack(1),
		},
		ListenerType: listenerType,
	}
}

// ShutdownError represents an operation attempted after the subscription
// manager has been shut down.
type ShutdownError struct {
	*BaseError
}

// NewShutdownError creates a new shutdown-in-progress error.
func NewShutdownError() *ShutdownError {
	return &ShutdownError{
		BaseError: &BaseError{
			code:    CodeShutdownInProgress,
			message: "subscription manager has been shut down",
			stack:   captureStack(1),
		},
	}
}

// HandlerInvocationError represents a failure raised (or panicked) by a
// listener's handler method during dispatch.
type HandlerInvocationError struct {
	*BaseError
	HandlerID string
}

// NewHandlerInvocationError creates a new handler invocation error.
func NewHandlerInvocationError(handlerID string, cause error) *HandlerInvocationError {
	return &HandlerInvocationError{
		BaseError: &BaseError{
			code:    CodeHandlerInvocation,
			message: fmt.Sprintf("handler %s failed", handlerID),
			cause:   cause,
			stack:   captureStack(1),
		},
		HandlerID: handlerID,
	}
}

// Wrap wraps an error with additional context, preserving the cause chain.
// If err already carries a code (one of this package's Error types), the
// wrapper keeps that code; otherwise it falls back to CodeInternal.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	code := CodeInternal
	if e, ok := err.(Error); ok {
		code = e.Code()
	}
	return &BaseError{
		code:    code,
		message: message,
		cause:   err,
		stack:   captureStack(1),
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// New creates a new error with a message.
func New(message string) error {
	return &BaseError{
		code:    CodeInternal,
		message: message,
		stack:   captureStack(1),
	}
}

// Newf creates a new error with a formatted message.
func Newf(format string, args ...interface{}) error {
	return New(fmt.Sprintf(format, args...))
}
