// Package errors provides the error handling system for the textreflex
// analysis server. It defines the closed set of outcome categories every
// analysis request reduces to, JSON response formatting, request ID
// tracking, and integrated logging with Uber's zap logger.
//
// Every failure in the request path must be expressed as one of the
// ErrorType constants before a response is written; handlers switch on
// the type rather than inspecting message strings.
//
// Basic usage:
//
//	// Simple error response
//	errors.Error(w, "Something went wrong", http.StatusBadRequest)
//
//	// Type-specific error with context
//	errors.ErrorWithType(w, "Text too long", errors.ValidationError, http.StatusBadRequest)
//
// For more complex scenarios, use the constructors in types.go:
//
//	err := errors.NewValidationError(requestID, "Text too long", map[string]interface{}{
//	    "max_chars": 5000,
//	})
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// DefaultLogger is the default zap logger instance used throughout the package.
// It is initialized to a production configuration but can be overridden using SetLogger.
var DefaultLogger *zap.Logger

func init() {
	var err error
	DefaultLogger, err = zap.NewProduction()
	if err != nil {
		DefaultLogger = zap.NewNop()
	}
}

// SetLogger allows setting a custom zap logger instance.
// If nil is provided, the function will do nothing to prevent
// accidentally disabling logging.
func SetLogger(logger *zap.Logger) {
	if logger != nil {
		DefaultLogger = logger
	}
}

// ErrorType categorizes the outcome of a failed analysis request.
// The set is closed: every handled exit reduces to exactly one of
// these before a response is produced.
type ErrorType string

const (
	// ValidationError represents input validation failures: empty text,
	// text over the character bound, malformed request bodies.
	ValidationError ErrorType = "validation_error"

	// UpstreamTimeoutError represents an upstream inference call that
	// did not complete within the configured timeout.
	UpstreamTimeoutError ErrorType = "upstream_timeout"

	// UpstreamUnavailableError represents network failures, non-2xx
	// statuses, or rate limiting from the inference provider.
	UpstreamUnavailableError ErrorType = "upstream_unavailable"

	// MalformedResponseError represents a provider response that was
	// received but contained no parseable analysis payload.
	MalformedResponseError ErrorType = "malformed_response"

	// RateLimitError represents inbound rate limiting of a client.
	RateLimitError ErrorType = "rate_limit_error"

	// InternalError represents unexpected internal server errors.
	InternalError ErrorType = "internal_error"
)

// APIError is the error type used across the request path. It implements
// the error interface and is serialized to JSON for API responses while
// keeping the underlying cause for logging and unwrapping.
type APIError struct {
	// Type categorizes the error for client handling
	Type ErrorType `json:"type"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Code is the HTTP status code (not exposed in JSON)
	Code int `json:"-"`

	// RequestID links the error to a specific request
	RequestID string `json:"request_id"`

	// Details contains additional error context
	Details map[string]interface{} `json:"details,omitempty"`

	// err is the underlying error (not exposed in JSON)
	err error
}

// Error implements the error interface. It combines the error type,
// message, and underlying error (if any).
func (e *APIError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error, implementing the unwrap
// interface for error chains.
func (e *APIError) Unwrap() error {
	return e.err
}

// Is implements error matching for errors.Is. Two APIErrors match when
// their Types match, ignoring other fields.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WriteError formats and writes an APIError to an http.ResponseWriter.
// It sets the content type and status code, then writes the error as a
// JSON response.
func WriteError(w http.ResponseWriter, err *APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	if encErr := json.NewEncoder(w).Encode(err); encErr != nil {
		DefaultLogger.Error("failed to encode error response", zap.Error(encErr))
	}
}

// Error is a drop-in replacement for http.Error that creates and writes
// an APIError with the InternalError type. It automatically includes
// the request ID from the response headers if available.
func Error(w http.ResponseWriter, message string, code int) {
	requestID := w.Header().Get("X-Request-ID")
	err := &APIError{
		Type:      InternalError,
		Message:   message,
		Code:      code,
		RequestID: requestID,
	}
	WriteError(w, err)
}

// ErrorWithType is like Error but allows specifying the error type.
func ErrorWithType(w http.ResponseWriter, message string, errType ErrorType, code int) {
	requestID := w.Header().Get("X-Request-ID")
	err := &APIError{
		Type:      errType,
		Message:   message,
		Code:      code,
		RequestID: requestID,
	}
	WriteError(w, err)
}
