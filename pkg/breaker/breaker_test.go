package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cb := New("test", Config{FailureThreshold: 3, RecoveryTimeout: time.Minute, HalfOpenMaxCalls: 2})

	for i := 0; i < 2; i++ {
		require.True(t, cb.Allow())
		cb.RecordFailure()
		assert.Equal(t, StateClosed, cb.State())
	}

	require.True(t, cb.Allow())
	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Allow())
}

func TestBreakerHalfOpenAfterRecoveryTimeout(t *testing.T) {
	cb := New("test", Config{FailureThreshold: 1, RecoveryTimeout: 10 * time.Millisecond, HalfOpenMaxCalls: 2})

	cb.RecordFailure()
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.State())

	// Probe slots are bounded.
	assert.True(t, cb.Allow())
	assert.True(t, cb.Allow())
	assert.False(t, cb.Allow())
}

func TestBreakerClosesOnHalfOpenSuccess(t *testing.T) {
	cb := New("test", Config{FailureThreshold: 1, RecoveryTimeout: 10 * time.Millisecond, HalfOpenMaxCalls: 3})

	cb.RecordFailure()
	time.Sleep(20 * time.Millisecond)

	require.True(t, cb.Allow())
	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.State())
	assert.True(t, cb.Allow())
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	cb := New("test", Config{FailureThreshold: 1, RecoveryTimeout: 10 * time.Millisecond, HalfOpenMaxCalls: 3})

	cb.RecordFailure()
	time.Sleep(20 * time.Millisecond)

	require.True(t, cb.Allow())
	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Allow())
}

func TestExecuteRejectsWhenOpen(t *testing.T) {
	cb := New("test", Config{FailureThreshold: 1, RecoveryTimeout: time.Minute, HalfOpenMaxCalls: 1})

	boom := errors.New("boom")
	err := cb.Execute(func() error { return boom })
	require.ErrorIs(t, err, boom)

	called := false
	err = cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestAllStateChangeCallbacksFire(t *testing.T) {
	cb := New("test", Config{FailureThreshold: 1, RecoveryTimeout: time.Minute, HalfOpenMaxCalls: 1})

	var first, second []State
	cb.OnStateChange(func(name string, from, to State) {
		assert.Equal(t, "test", name)
		first = append(first, to)
	})
	cb.OnStateChange(func(name string, from, to State) {
		second = append(second, to)
	})

	cb.RecordFailure()

	// A later registration must not displace an earlier one.
	require.Equal(t, []State{StateOpen}, first)
	require.Equal(t, []State{StateOpen}, second)
}

func TestExecuteSuccessResetsFailureCount(t *testing.T) {
	cb := New("test", Config{FailureThreshold: 2, RecoveryTimeout: time.Minute, HalfOpenMaxCalls: 1})

	require.Error(t, cb.Execute(func() error { return errors.New("boom") }))
	require.NoError(t, cb.Execute(func() error { return nil }))
	require.Error(t, cb.Execute(func() error { return errors.New("boom") }))

	// One failure after a success does not reach the threshold of two.
	assert.Equal(t, StateClosed, cb.State())
}
