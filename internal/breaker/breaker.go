// Package breaker wraps sony/gobreaker with logging and Prometheus metrics so
// every outbound integration trips and recovers the same way.
package breaker

import (
	"errors"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/novelly/novelly-server/internal/metrics"
)

// Settings tunes a breaker. Zero values fall back to defaults.
type Settings struct {
	// MinRequests is the sample size needed before the failure ratio counts.
	MinRequests uint32
	// FailureRatio opens the circuit when reached.
	FailureRatio float64
	// Timeout is how long the circuit stays open before probing again.
	Timeout time.Duration
	// IsSuccessful classifies errors that should not count as failures,
	// such as a rejected credential. Nil counts every error.
	IsSuccessful func(err error) bool
}

// Breaker is a typed circuit breaker for one upstream.
type Breaker[T any] struct {
	cb   *gobreaker.CircuitBreaker[T]
	name string
}

// New creates a breaker named after its upstream.
func New[T any](name string, s Settings, logger *slog.Logger) *Breaker[T] {
	if s.MinRequests == 0 {
		s.MinRequests = 10
	}
	if s.FailureRatio == 0 {
		s.FailureRatio = 0.6
	}
	if s.Timeout == 0 {
		s.Timeout = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= s.FailureRatio
		},
		IsSuccessful: s.IsSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &Breaker[T]{cb: cb, name: name}
}

// Execute runs fn through the breaker.
// ErrOpen is returned without calling fn while the circuit is open.
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	result, err := b.cb.Execute(fn)
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	case IsOpen(err):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		var zero T
		return zero, ErrOpen
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
	}
	return result, err
}

// State returns the current state name.
func (b *Breaker[T]) State() string {
	return b.cb.State().String()
}

// ErrOpen is returned when a call is rejected by an open circuit.
var ErrOpen = errors.New("circuit breaker open")

// IsOpen reports whether err is a rejection from an open or saturated circuit.
func IsOpen(err error) bool {
	return errors.Is(err, ErrOpen) ||
		errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests)
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
