// Package apperror provides the error type shared by the calendar and sync
// API services. An AppError carries an HTTP status code and a client-safe
// message; the Echo error handler in internal/app renders it as JSON.
//
// NEVER return raw database or Redis errors to the client. Wrap them with
// NewInternal so only the generic message leaves the server.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the base error type for all domain errors. It carries an
// HTTP status code, a machine-readable error type, and a human-readable
// message safe to show to the client.
type AppError struct {
	// Code is the HTTP status code (e.g., 404, 400, 500).
	Code int `json:"-"`

	// Type is a machine-readable error classifier (e.g., "not_found").
	Type string `json:"type"`

	// Message is a human-readable description safe for the client.
	Message string `json:"message"`

	// Internal holds the underlying error for logging. Never exposed to client.
	Internal error `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Internal
}

func newError(code int, typ, message string) *AppError {
	return &AppError{Code: code, Type: typ, Message: message}
}

// NewNotFound creates a 404 Not Found error.
func NewNotFound(message string) *AppError {
	return newError(http.StatusNotFound, "not_found", message)
}

// NewBadRequest creates a 400 Bad Request error for malformed input.
func NewBadRequest(message string) *AppError {
	return newError(http.StatusBadRequest, "bad_request", message)
}

// NewForbidden creates a 403 Forbidden error, used when the acting user's
// role does not allow a calendar change.
func NewForbidden(message string) *AppError {
	return newError(http.StatusForbidden, "forbidden", message)
}

// NewConflict creates a 409 Conflict error.
func NewConflict(message string) *AppError {
	return newError(http.StatusConflict, "conflict", message)
}

// NewValidation creates a 422 Unprocessable Entity error for validation failures.
func NewValidation(message string) *AppError {
	return newError(http.StatusUnprocessableEntity, "validation_error", message)
}

// NewInternal creates a 500 Internal Server Error. The real error is stored
// in Internal for logging but the client only sees a generic message.
func NewInternal(err error) *AppError {
	return &AppError{
		Code:     http.StatusInternalServerError,
		Type:     "internal_error",
		Message:  "An unexpected error occurred. Please try again.",
		Internal: err,
	}
}

// From returns err as an AppError. Errors that are not AppErrors anywhere
// in their chain become internal errors wrapping err.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternal(err)
}
