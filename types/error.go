package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the inbox.
type ErrorCode string

// Remote service error codes
const (
	ErrNetworkFailure   ErrorCode = "NETWORK_FAILURE"
	ErrStreamError      ErrorCode = "STREAM_ERROR"
	ErrInvalidAssistant ErrorCode = "INVALID_ASSISTANT"
)

// Local error codes
const (
	ErrValidation          ErrorCode = "VALIDATION_FAILURE"
	ErrStaleRequest        ErrorCode = "STALE_REQUEST"
	ErrMalformedInterrupt  ErrorCode = "MALFORMED_INTERRUPT"
	ErrMismatchedEditShape ErrorCode = "MISMATCHED_EDIT_SHAPE"
	ErrNoMatchingResponse  ErrorCode = "NO_MATCHING_RESPONSE"
	ErrNoResponseFound     ErrorCode = "NO_RESPONSE_FOUND"
	ErrSubmissionInFlight  ErrorCode = "SUBMISSION_IN_FLIGHT"
	ErrInvalidTransition   ErrorCode = "INVALID_TRANSITION"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Cause      error     `json:"-"`
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
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a new Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// AsError extracts a *Error from anywhere in the chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// IsErrorCode reports whether err carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}

// NewValidationError is shorthand for a ValidationFailure.
func NewValidationError(format string, args ...any) *Error {
	return Errorf(ErrValidation, format, args...)
}

// NewNetworkError wraps a transport-level failure.
func NewNetworkError(op string, cause error) *Error {
	return NewError(ErrNetworkFailure, op+" failed").WithCause(cause).WithRetryable(true)
}
