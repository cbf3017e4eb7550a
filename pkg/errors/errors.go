// Package errors provides the structured error type returned across the HTTP boundary
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents an error code
type ErrorCode string

const (
	CodeBadRequest            ErrorCode = "BAD_REQUEST"
	CodeValidationFailed      ErrorCode = "VALIDATION_FAILED"
	CodeNotFound              ErrorCode = "NOT_FOUND"
	CodeTooManyRequests       ErrorCode = "TOO_MANY_REQUESTS"
	CodeGenerationUnavailable ErrorCode = "GENERATION_UNAVAILABLE"
	CodeMalformedPayload      ErrorCode = "MALFORMED_UPSTREAM_PAYLOAD"
	CodePersistenceFailure    ErrorCode = "PERSISTENCE_FAILURE"
	CodeInternal              ErrorCode = "INTERNAL_ERROR"
)

// AppError represents an application error with structured information
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// StatusCode returns the appropriate HTTP status code
func (e *AppError) StatusCode() int {
	switch e.Code {
	case CodeBadRequest, CodeValidationFailed:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeGenerationUnavailable:
		return http.StatusServiceUnavailable
	case CodeMalformedPayload:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WithCause adds a cause error
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// New creates a new application error
func New(code ErrorCode, message, details string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

func NewBadRequestError(message string) *AppError {
	return New(CodeBadRequest, message, "")
}

// NewValidationError reports structurally invalid caller input for a field
func NewValidationError(field, message string) *AppError {
	return New(CodeValidationFailed, message, field)
}

// NewNotFoundError creates a not found error for the given resource
func NewNotFoundError(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource), "")
}

func NewInternalError(message string) *AppError {
	return New(CodeInternal, message, "")
}

// AsAppError extracts an *AppError from err, wrapping anything else as internal
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError("internal server error").WithCause(err)
}
