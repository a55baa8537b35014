// Package provider implements the outbound client for the remote
// text-generation endpoint. It exposes a narrow Client interface so the
// analysis layer can be exercised against stubs, plus a circuit-breaker
// decorator for production use.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// Request carries one inference call to the upstream endpoint.
type Request struct {
	// System is the instruction that pins the output format.
	System string

	// Prompt is the composed analysis prompt, user text included.
	Prompt string
}

// Client is the interface every upstream transport implements.
// Complete performs exactly one call per invocation; the context
// carries the deadline and cancellation.
type Client interface {
	// Name returns a human-readable identifier for the transport.
	Name() string

	// Complete sends the request and returns the raw response body.
	// Failures are classified with ErrTimeout / ErrUnavailable so
	// callers can map them without inspecting transport details.
	Complete(ctx context.Context, req Request) (string, error)
}

// Classification sentinels. Transports wrap these so callers can use
// errors.Is without depending on net/http or gobreaker.
var (
	// ErrTimeout indicates the call did not complete within the bound.
	ErrTimeout = errors.New("upstream request timed out")

	// ErrUnavailable indicates a network failure, a non-2xx status,
	// provider rate limiting, or an open circuit.
	ErrUnavailable = errors.New("upstream unavailable")
)

// StatusError reports a non-2xx upstream status. It unwraps to
// ErrUnavailable so errors.Is classification still holds.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream unavailable: status %d", e.Status)
}

func (e *StatusError) Unwrap() error {
	return ErrUnavailable
}

// Retryable reports whether a failed call may be retried once.
// Timeouts, network failures, and 5xx statuses are transient; 4xx
// statuses (including provider rate limiting) are not.
func Retryable(err error) bool {
	if errors.Is(err, ErrTimeout) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status >= 500
	}
	return errors.Is(err, ErrUnavailable)
}
