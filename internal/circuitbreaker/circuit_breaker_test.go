package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBoom = errors.New("boom")

func newTestBreaker() (*CircuitBreaker, *time.Time) {
	now := time.Unix(1_700_000_000, 0)
	cb := NewCircuitBreaker(&Config{Name: "lcd", MaxFailures: 3, Timeout: time.Minute, HalfOpenMaxCalls: 2})
	cb.now = func() time.Time { return now }
	return cb, &now
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb, _ := newTestBreaker()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, func() error { return errBoom }), errBoom)
	}
	assert.Equal(t, StateOpen, cb.GetState())

	called := false
	err := cb.Execute(ctx, func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_RecoversThroughHalfOpen(t *testing.T) {
	cb, now := newTestBreaker()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, func() error { return errBoom })
	}

	*now = now.Add(2 * time.Minute)
	assert.NoError(t, cb.Execute(ctx, func() error { return nil }))
	assert.Equal(t, StateHalfOpen, cb.GetState())
	assert.NoError(t, cb.Execute(ctx, func() error { return nil }))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, now := newTestBreaker()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, func() error { return errBoom })
	}

	*now = now.Add(2 * time.Minute)
	_ = cb.Execute(ctx, func() error { return errBoom })
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreaker_ClassifierIgnoresNonFailures(t *testing.T) {
	cb, _ := newTestBreaker()
	ctx := context.Background()
	ignore := func(err error) bool { return false }

	for i := 0; i < 10; i++ {
		_ = cb.ExecuteClassified(ctx, func() error { return errBoom }, ignore)
	}
	assert.Equal(t, StateClosed, cb.GetState())
}
