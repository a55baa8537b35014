package errors

import (
	"net/http"
)

// NewError creates a new APIError with the given parameters.
// It is a general-purpose constructor that allows full control over
// the error's fields. For most cases, use one of the specialized
// constructors below.
//
// Example:
//
//	err := NewError(InternalError, "encode failed", 500, "req_123", nil, encErr)
func NewError(errType ErrorType, message string, code int, requestID string, details map[string]interface{}, err error) *APIError {
	return &APIError{
		Type:      errType,
		Message:   message,
		Code:      code,
		RequestID: requestID,
		Details:   details,
		err:       err,
	}
}

// NewValidationError creates a validation error with appropriate defaults.
// Use this for any request validation failures, such as:
//   - Empty submitted text
//   - Text exceeding the character bound
//   - Malformed request bodies
//
// Example:
//
//	err := NewValidationError("req_123", "Text exceeds limit", map[string]interface{}{
//	    "max_chars": 5000,
//	})
func NewValidationError(requestID, message string, validationDetails map[string]interface{}) *APIError {
	return &APIError{
		Type:      ValidationError,
		Message:   message,
		Code:      http.StatusBadRequest,
		RequestID: requestID,
		Details:   validationDetails,
	}
}

// NewUpstreamTimeoutError creates an upstream timeout error. Use this
// when the inference call did not complete within the configured bound.
// It maps to 504 Gateway Timeout.
func NewUpstreamTimeoutError(requestID string, err error) *APIError {
	return &APIError{
		Type:      UpstreamTimeoutError,
		Message:   "Analysis service timed out, please try again",
		Code:      http.StatusGatewayTimeout,
		RequestID: requestID,
		err:       err,
	}
}

// NewUpstreamUnavailableError creates an upstream unavailability error.
// Use this for network failures, non-2xx provider statuses, provider
// rate limiting, and an open circuit breaker. It maps to 502 Bad Gateway.
func NewUpstreamUnavailableError(requestID string, err error) *APIError {
	return &APIError{
		Type:      UpstreamUnavailableError,
		Message:   "Analysis service unavailable, please try again",
		Code:      http.StatusBadGateway,
		RequestID: requestID,
		err:       err,
	}
}

// NewMalformedResponseError creates an error for provider responses that
// carried no usable analysis payload. The raw provider text must never be
// included: it is logged by the caller, not shown to the end user.
func NewMalformedResponseError(requestID string, err error) *APIError {
	return &APIError{
		Type:      MalformedResponseError,
		Message:   "Analysis service returned an unreadable response",
		Code:      http.StatusInternalServerError,
		RequestID: requestID,
		err:       err,
	}
}

// NewRateLimitError creates an inbound rate limit error with a
// retry-after hint in seconds.
//
// Example:
//
//	err := NewRateLimitError("req_123", 30)
func NewRateLimitError(requestID string, retryAfter int) *APIError {
	return &APIError{
		Type:      RateLimitError,
		Message:   "Rate limit exceeded",
		Code:      http.StatusTooManyRequests,
		RequestID: requestID,
		Details: map[string]interface{}{
			"retry_after": retryAfter,
		},
	}
}

// NewInternalError creates an internal server error with appropriate
// defaults. Use this for unexpected errors not covered by other types,
// such as panics or response encoding failures.
func NewInternalError(requestID string, err error) *APIError {
	return &APIError{
		Type:      InternalError,
		Message:   "An internal error occurred",
		Code:      http.StatusInternalServerError,
		RequestID: requestID,
		err:       err,
	}
}
