package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for OGM errors.
type ErrorCode string

// Configuration error codes
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_PARSE_FAILED      ErrorCode = "CONFIG_PARSE_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
)

// Driver error codes
const (
	DRIVER_NOT_REGISTERED    ErrorCode = "DRIVER_NOT_REGISTERED"
	DRIVER_CONNECTION_FAILED ErrorCode = "DRIVER_CONNECTION_FAILED"
	DRIVER_CLOSED            ErrorCode = "DRIVER_CLOSED"
)

// Session error codes
const (
	SESSION_TYPE_UNMAPPED    ErrorCode = "SESSION_TYPE_UNMAPPED"
	SESSION_ENTITY_UNSAVED   ErrorCode = "SESSION_ENTITY_UNSAVED"
	SESSION_HYDRATION_FAILED ErrorCode = "SESSION_HYDRATION_FAILED"
)

// Schema error codes
const (
	INDEX_BUILD_FAILED ErrorCode = "INDEX_BUILD_FAILED"
)

// Error represents a structured error with error code, message, and optional cause.
// It supports error wrapping and retryability hints for error handling logic.
type Error struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface, returning a formatted error message.
// Format: "[CODE] message" or "[CODE] message: cause" if cause exists.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for error unwrapping chains.
// This enables using errors.Is() and errors.As() with wrapped errors.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error by error code.
// Returns true if target is a *types.Error with the same Code.
func (e *Error) Is(target error) bool {
	var ogmErr *Error
	if errors.As(target, &ogmErr) {
		return e.Code == ogmErr.Code
	}
	return false
}

// NewError creates a new non-retryable Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Retryable: false,
		Cause:     nil,
	}
}

// NewRetryableError creates a new retryable Error with the given code and message.
// Use this for transient errors that may succeed on retry (e.g., network timeouts).
func NewRetryableError(code ErrorCode, message string) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Retryable: true,
		Cause:     nil,
	}
}

// WrapError creates a new non-retryable Error that wraps an existing error.
// The wrapped error is accessible via Unwrap() for error chain inspection.
func WrapError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Retryable: false,
		Cause:     cause,
	}
}

// CodeOf extracts the ErrorCode from err if it is (or wraps) a *types.Error.
// Returns the empty code when err carries no structured code.
func CodeOf(err error) ErrorCode {
	var ogmErr *Error
	if errors.As(err, &ogmErr) {
		return ogmErr.Code
	}
	return ""
}
