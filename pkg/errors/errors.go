// Package errors provides structured error handling for Refinery.
//
// Every failure that crosses a package boundary is an *Error carrying an
// ErrorType. Callers branch on the type (IsNotFound, IsInvalidMethod, ...)
// rather than on message text, so a UI can, for example, disable an undo
// button on ErrorTypeNothingToUndo without treating it as a fault.
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeNotFound represents an unknown session key
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeNothingToUndo is returned when the undo stack is empty
	ErrorTypeNothingToUndo ErrorType = "nothing_to_undo"
	// ErrorTypeNothingToRedo is returned when the redo stack is empty
	ErrorTypeNothingToRedo ErrorType = "nothing_to_redo"
	// ErrorTypeInvalidColumn represents a structurally required column that is absent or unusable
	ErrorTypeInvalidColumn ErrorType = "invalid_column"
	// ErrorTypeInvalidMethod represents an unrecognized strategy, method or action
	ErrorTypeInvalidMethod ErrorType = "invalid_method"
	// ErrorTypeConflict represents conflict errors
	ErrorTypeConflict ErrorType = "conflict"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeData represents data processing errors
	ErrorTypeData ErrorType = "data"
	// ErrorTypeCapability represents capability/feature not supported errors
	ErrorTypeCapability ErrorType = "capability"
	// ErrorTypeFile represents file operation errors
	ErrorTypeFile ErrorType = "file"
	// ErrorTypeQuery represents query execution errors
	ErrorTypeQuery ErrorType = "query"
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// NotFound reports an unknown session key.
func NotFound(key string) *Error {
	return New(ErrorTypeNotFound, fmt.Sprintf("session %q not found", key)).
		WithDetail("session_key", key)
}

// InvalidColumn reports a required column that the table cannot supply.
func InvalidColumn(column, reason string) *Error {
	return New(ErrorTypeInvalidColumn, fmt.Sprintf("column %q %s", column, reason)).
		WithDetail("column", column)
}

// InvalidMethod reports an unrecognized method string for the named parameter.
func InvalidMethod(param, value string) *Error {
	return New(ErrorTypeInvalidMethod, fmt.Sprintf("unknown %s %q", param, value)).
		WithDetail(param, value)
}

// IsType checks if any error in the chain is of the given type
func IsType(err error, errType ErrorType) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Type == errType {
			return true
		}
		err = e.Cause
	}
	return false
}

// IsNotFound reports whether err is an unknown-session error.
func IsNotFound(err error) bool { return IsType(err, ErrorTypeNotFound) }

// IsNothingToUndo reports whether err signals an empty undo stack.
func IsNothingToUndo(err error) bool { return IsType(err, ErrorTypeNothingToUndo) }

// IsNothingToRedo reports whether err signals an empty redo stack.
func IsNothingToRedo(err error) bool { return IsType(err, ErrorTypeNothingToRedo) }

// IsInvalidColumn reports whether err is a missing/unusable column error.
func IsInvalidColumn(err error) bool { return IsType(err, ErrorTypeInvalidColumn) }

// IsInvalidMethod reports whether err is an unrecognized method error.
func IsInvalidMethod(err error) bool { return IsType(err, ErrorTypeInvalidMethod) }

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
