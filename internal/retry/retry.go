// Package retry runs an operation repeatedly with exponential backoff. It is
// used for polling that is expected to fail a few times, such as waiting for
// a transaction to land in a block. Document reads and writes are never retried.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/docustore/internal/logging"
)

// Config configures retry behavior
type Config struct {
	MaxAttempts  int           // 0 means until the context is done
	InitialDelay time.Duration // Delay before the second attempt
	MaxDelay     time.Duration // Cap for the backoff
	Multiplier   float64       // Growth factor between attempts
}

// DefaultConfig returns 1s, 2s, 4s... capped at 10s, until the context ends
func DefaultConfig() *Config {
	return &Config{
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}
}

// Result contains information about the retry operation
type Result struct {
	Attempts      int
	Success       bool
	TotalDuration time.Duration
	LastError     error
}

// Func is a function that can be retried
type Func func(ctx context.Context, attempt int) error

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying; the loop stops and returns it
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// WithExponentialBackoff executes fn until it succeeds, returns a permanent
// error, runs out of attempts, or ctx is done
func WithExponentialBackoff(ctx context.Context, config *Config, fn Func) *Result {
	logger := logging.FromContext(ctx)
	start := time.Now()
	result := &Result{}

	for attempt := 1; config.MaxAttempts <= 0 || attempt <= config.MaxAttempts; attempt++ {
		result.Attempts = attempt

		err := fn(ctx, attempt)
		if err == nil {
			result.Success = true
			result.LastError = nil
			result.TotalDuration = time.Since(start)
			if attempt > 1 {
				logger.WithFields(map[string]interface{}{
					"attempts":      attempt,
					"totalDuration": result.TotalDuration.String(),
				}).Debug("Operation succeeded after retry")
			}
			return result
		}
		result.LastError = err

		var perm *permanentError
		if errors.As(err, &perm) {
			result.LastError = perm.err
			break
		}
		if config.MaxAttempts > 0 && attempt >= config.MaxAttempts {
			break
		}

		delay := calculateDelay(config, attempt)
		logger.WithFields(map[string]interface{}{
			"attempt": attempt,
			"delay":   delay.String(),
			"error":   err.Error(),
		}).Debug("Operation not ready, backing off")

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			result.LastError = fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
			result.TotalDuration = time.Since(start)
			return result
		}
	}

	result.TotalDuration = time.Since(start)
	return result
}

// calculateDelay computes initialDelay * multiplier^(attempt-1), capped at MaxDelay
func calculateDelay(config *Config, attempt int) time.Duration {
	delay := float64(config.InitialDelay) * math.Pow(config.Multiplier, float64(attempt-1))
	if config.MaxDelay > 0 && delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	return time.Duration(delay)
}

// Do is WithExponentialBackoff folded into a single error
func Do(ctx context.Context, config *Config, fn Func) error {
	result := WithExponentialBackoff(ctx, config, fn)
	if !result.Success {
		return fmt.Errorf("operation failed after %d attempts: %w", result.Attempts, result.LastError)
	}
	return nil
}
