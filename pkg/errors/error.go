package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Error is the unified error type carrying a code, a human message
// and the wrapped cause
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
	Stack   string
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is / errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error with the code's default message
func New(code ErrorCode) *Error {
	return &Error{
		Code:    code,
		Message: code.Message(),
		Stack:   getStack(),
	}
}

// Newf creates an error with a formatted custom message
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Stack:   getStack(),
	}
}

// Wrap wraps an existing error with a code, keeping the code's default message
func Wrap(err error, code ErrorCode) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: code.Message(),
		Err:     err,
		Stack:   getStack(),
	}
}

// Wrapf wraps an existing error with a code and a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
		Stack:   getStack(),
	}
}

// WithMessage replaces the message while keeping code and cause
func (e *Error) WithMessage(message string) *Error {
	e.Message = message
	return e
}

// WithMessagef replaces the message with a formatted one
func (e *Error) WithMessagef(format string, args ...interface{}) *Error {
	e.Message = fmt.Sprintf(format, args...)
	return e
}

// GetCode extracts the error code from an error chain,
// returning InternalServerError for foreign errors
func GetCode(err error) ErrorCode {
	if err == nil {
		return Success
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return InternalServerError
}

// GetError extracts our Error type from an error chain
func GetError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, InternalServerError)
}

// Is reports whether any error in the chain carries the given code
func Is(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// getStack captures the call stack, skipping the errors package frames
func getStack() string {
	var pcs [32]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var sb strings.Builder
	for {
		frame, more := frames.Next()
		if strings.Contains(frame.File, "runtime/") {
			break
		}
		sb.WriteString(fmt.Sprintf("%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line))
		if !more {
			break
		}
	}
	return sb.String()
}
