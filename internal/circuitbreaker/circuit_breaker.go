// Package circuitbreaker stops hammering a chain endpoint that keeps failing.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/docustore/internal/logging"
)

// State represents the circuit breaker state
type State string

const (
	// StateClosed means calls flow normally
	StateClosed State = "closed"
	// StateOpen means calls fail fast until the cool-down elapses
	StateOpen State = "open"
	// StateHalfOpen means a limited number of probe calls are let through
	StateHalfOpen State = "half_open"
)

// ErrCircuitOpen is returned when the circuit breaker is open
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ErrTooManyRequests is returned when the half-open probe budget is used up
var ErrTooManyRequests = errors.New("too many requests in half-open state")

// Config configures a circuit breaker
type Config struct {
	Name             string
	MaxFailures      int           // Consecutive failures that open the circuit
	Timeout          time.Duration // Cool-down before probing again
	HalfOpenMaxCalls int           // Successful probes needed to close
}

// DefaultConfig returns a default circuit breaker configuration
func DefaultConfig(name string) *Config {
	return &Config{
		Name:             name,
		MaxFailures:      5,
		Timeout:          30 * time.Second,
		HalfOpenMaxCalls: 2,
	}
}

// CircuitBreaker implements the circuit breaker pattern
type CircuitBreaker struct {
	cfg Config
	now func() time.Time

	mu               sync.Mutex
	state            State
	consecutiveFails int
	halfOpenCalls    int
	halfOpenSuccess  int
	openedAt         time.Time
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(config *Config) *CircuitBreaker {
	return &CircuitBreaker{
		cfg:   *config,
		now:   time.Now,
		state: StateClosed,
	}
}

// IsFailure decides whether an error counts against the breaker. Callers
// pass a classifier so that, for example, a contract rejection does not
// trip the breaker guarding the transport.
type IsFailure func(err error) bool

// Execute runs fn unless the circuit is open. Every non-nil error counts as a failure.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	return cb.ExecuteClassified(ctx, fn, func(err error) bool { return err != nil })
}

// ExecuteClassified runs fn and records the outcome according to isFailure
func (cb *CircuitBreaker) ExecuteClassified(ctx context.Context, fn func() error, isFailure IsFailure) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	err := fn()
	cb.afterRequest(ctx, isFailure(err))
	return err
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.cfg.Timeout {
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.halfOpenCalls = 0
		cb.halfOpenSuccess = 0
		fallthrough
	case StateHalfOpen:
		if cb.halfOpenCalls >= cb.cfg.HalfOpenMaxCalls {
			return ErrTooManyRequests
		}
		cb.halfOpenCalls++
	}
	return nil
}

func (cb *CircuitBreaker) afterRequest(ctx context.Context, failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	logger := logging.FromContext(ctx).WithField("circuitBreaker", cb.cfg.Name)

	if failed {
		cb.consecutiveFails++
		if cb.state == StateHalfOpen || cb.consecutiveFails >= cb.cfg.MaxFailures {
			if cb.state != StateOpen {
				logger.WithField("consecutiveFails", cb.consecutiveFails).Warn("Circuit breaker opened")
			}
			cb.state = StateOpen
			cb.openedAt = cb.now()
		}
		return
	}

	cb.consecutiveFails = 0
	if cb.state == StateHalfOpen {
		cb.halfOpenSuccess++
		if cb.halfOpenSuccess >= cb.cfg.HalfOpenMaxCalls {
			cb.state = StateClosed
			logger.Info("Circuit breaker closed after successful recovery")
		}
	}
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forces the breaker closed
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.consecutiveFails = 0
}
