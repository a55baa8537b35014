// Package errors provides error response utilities.
package errors

import (
	"errors"
)

// ErrorResponse is the standardized error shape returned to clients.
// It mirrors the JSON fields of APIError and exists so tests and
// clients can decode responses without the server-side type.
type ErrorResponse struct {
	Type      ErrorType              `json:"type"`
	Message   string                 `json:"message"`
	RequestID string                 `json:"request_id"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// As is a wrapper around errors.As for better error type assertion
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// TypeOf returns the ErrorType of err if it is (or wraps) an APIError,
// and InternalError otherwise. It gives callers a total mapping from
// any error to the response taxonomy.
func TypeOf(err error) ErrorType {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Type
	}
	return InternalError
}
