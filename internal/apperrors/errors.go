// Package apperrors provides structured error handling with workflow guard
// taxonomy and HTTP status code mapping.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of error for metrics and response formatting.
type ErrorType string

const (
	// TypeValidation indicates invalid client input; never sent upstream (HTTP 400)
	TypeValidation ErrorType = "validation"
	// TypeNotEditable indicates an edit attempt outside the kind's open state (HTTP 409)
	TypeNotEditable ErrorType = "not_editable"
	// TypeNotCancellable indicates a cancel attempt from a terminal-ish status (HTTP 409)
	TypeNotCancellable ErrorType = "not_cancellable"
	// TypeInvalidTransition indicates any other workflow guard violation (HTTP 409)
	TypeInvalidTransition ErrorType = "invalid_transition"
	// TypeNotFound indicates resource not found (HTTP 404)
	TypeNotFound ErrorType = "not_found"
	// TypeRemote wraps a failure reported by an upstream collaborator (HTTP 502)
	TypeRemote ErrorType = "remote"
	// TypeInternal indicates an unexpected internal failure (HTTP 500)
	TypeInternal ErrorType = "internal"
)

// Error represents a structured error with type, message, and context.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsGuard reports whether the error is a workflow guard violation, raised
// before any mutation was attempted.
func (e *Error) IsGuard() bool {
	switch e.Type {
	case TypeNotEditable, TypeNotCancellable, TypeInvalidTransition:
		return true
	}
	return false
}

// HTTPStatus returns the appropriate HTTP status code for this error type.
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeNotEditable, TypeNotCancellable, TypeInvalidTransition:
		return http.StatusConflict
	case TypeNotFound:
		return http.StatusNotFound
	case TypeRemote:
		return http.StatusBadGateway
	case TypeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Validation creates a new validation error (HTTP 400).
func Validation(message string) *Error {
	return &Error{Type: TypeValidation, Message: message, Context: make(map[string]any)}
}

// NotEditable creates a guard error for edits outside the open state (HTTP 409).
func NotEditable(message string) *Error {
	return &Error{Type: TypeNotEditable, Message: message, Context: make(map[string]any)}
}

// NotCancellable creates a guard error for disallowed cancellations (HTTP 409).
func NotCancellable(message string) *Error {
	return &Error{Type: TypeNotCancellable, Message: message, Context: make(map[string]any)}
}

// InvalidTransition creates a guard error for any other disallowed status move (HTTP 409).
func InvalidTransition(message string) *Error {
	return &Error{Type: TypeInvalidTransition, Message: message, Context: make(map[string]any)}
}

// NotFound creates a new not-found error (HTTP 404).
func NotFound(message string) *Error {
	return &Error{Type: TypeNotFound, Message: message, Context: make(map[string]any)}
}

// Remote wraps a collaborator failure (HTTP 502). The message should be the
// human-readable text the collaborator supplied, or a generic fallback.
func Remote(message string, cause error) *Error {
	return &Error{Type: TypeRemote, Message: message, Cause: cause, Context: make(map[string]any)}
}

// Internal creates a new internal error (HTTP 500).
func Internal(message string, cause error) *Error {
	return &Error{Type: TypeInternal, Message: message, Cause: cause, Context: make(map[string]any)}
}

// WithContext adds context fields to the error (chainable).
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// ErrorResponse represents the JSON structure sent to clients.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Type    ErrorType      `json:"type"`
	Context map[string]any `json:"context,omitempty"`
}

// ToResponse converts an Error to an ErrorResponse for JSON serialization.
func (e *Error) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error:   e.Message,
		Type:    e.Type,
		Context: e.Context,
	}
}

// AsStructuredError converts any error into a structured Error.
// If err is already an *Error, returns it unchanged.
// Otherwise wraps it as an internal error.
func AsStructuredError(err error) *Error {
	if err == nil {
		return nil
	}

	var structuredErr *Error
	if errors.As(err, &structuredErr) {
		return structuredErr
	}

	return Internal("internal server error", err)
}
