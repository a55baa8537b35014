package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/191-iota/textreflex/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Breaker decorates a Client with a circuit breaker. After a run of
// consecutive upstream failures the circuit opens and calls fail fast
// as ErrUnavailable instead of burning the full timeout per request.
type Breaker struct {
	inner   Client
	breaker *gobreaker.CircuitBreaker

	stateGauge prometheus.Gauge
	tripsTotal prometheus.Counter
}

// NewBreaker wraps inner in a circuit breaker configured from cfg.
// Metrics are registered on the given registry when it is non-nil.
func NewBreaker(inner Client, cfg config.BreakerConfig, logger *zap.Logger, registry *prometheus.Registry) *Breaker {
	b := &Breaker{
		inner: inner,
		stateGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "textreflex_upstream_breaker_state",
			Help: "Current state of the upstream circuit breaker (0=closed, 1=half-open, 2=open)",
			ConstLabels: prometheus.Labels{
				"provider": inner.Name(),
			},
		}),
		tripsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "textreflex_upstream_breaker_trips_total",
			Help: "Total number of times the upstream circuit breaker has opened",
			ConstLabels: prometheus.Labels{
				"provider": inner.Name(),
			},
		}),
	}

	b.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: cfg.MaxHalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.stateGauge.Set(stateValue(to))
			if to == gobreaker.StateOpen {
				b.tripsTotal.Inc()
			}
			logger.Warn("upstream circuit breaker state change",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// Client-side cancellation says nothing about upstream health.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	if registry != nil {
		registry.MustRegister(b.stateGauge)
		registry.MustRegister(b.tripsTotal)
	}

	return b
}

// Name implements Client.
func (b *Breaker) Name() string {
	return b.inner.Name()
}

// Complete implements Client. An open circuit reports as
// ErrUnavailable; all other errors pass through from the inner client.
func (b *Breaker) Complete(ctx context.Context, req Request) (string, error) {
	out, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.Complete(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: circuit open", ErrUnavailable)
		}
		return "", err
	}
	return out.(string), nil
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}
