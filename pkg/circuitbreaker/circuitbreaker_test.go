package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBoom = errors.New("boom")

func newTestBreaker(cfg Config) (*CircuitBreaker, *time.Time) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(cfg)
	cb.now = func() time.Time { return now }
	return cb, &now
}

func TestOpensAfterThresholdAndRecovers(t *testing.T) {
	cb, now := newTestBreaker(Config{FailureThreshold: 2, SuccessThreshold: 1, Timeout: time.Second, HalfOpenMaxRequests: 1})

	assert.ErrorIs(t, cb.Execute(func() error { return errBoom }), errBoom)
	assert.Equal(t, StateClosed, cb.GetState())
	assert.ErrorIs(t, cb.Execute(func() error { return errBoom }), errBoom)
	assert.Equal(t, StateOpen, cb.GetState())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
	assert.False(t, called)

	*now = now.Add(2 * time.Second)
	assert.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestHalfOpenFailureReopens(t *testing.T) {
	cb, now := newTestBreaker(Config{FailureThreshold: 1, SuccessThreshold: 2, Timeout: time.Second, HalfOpenMaxRequests: 1})

	_ = cb.Execute(func() error { return errBoom })
	*now = now.Add(time.Second)

	_ = cb.Execute(func() error { return errBoom })
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestIsFailureFilter(t *testing.T) {
	ignored := errors.New("client error")
	cb, _ := newTestBreaker(Config{
		FailureThreshold: 1,
		IsFailure:        func(err error) bool { return !errors.Is(err, ignored) },
	})

	_ = cb.Execute(func() error { return ignored })
	assert.Equal(t, StateClosed, cb.GetState())

	cb.Reset()
	_ = cb.Execute(func() error { return errBoom })
	assert.Equal(t, StateOpen, cb.GetState())
}
