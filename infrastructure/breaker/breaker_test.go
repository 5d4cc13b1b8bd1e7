package breaker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-publisher/infrastructure/breaker"
)

var errBoom = errors.New("boom")

func fail(ctx context.Context) error { return errBoom }
func ok(ctx context.Context) error   { return nil }

func newClock(start time.Time) (func() time.Time, func(time.Duration)) {
	now := start
	return func() time.Time { return now }, func(d time.Duration) { now = now.Add(d) }
}

func TestOpensAfterFailureThreshold(t *testing.T) {
	r := breaker.NewRegistry(breaker.Config{FailureThreshold: 3})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, r.Execute(ctx, "youtube", fail), errBoom)
	}
	assert.Equal(t, breaker.StateOpen, r.State("youtube"))

	// Next call is rejected without running fn.
	called := false
	err := r.Execute(ctx, "youtube", func(ctx context.Context) error { called = true; return nil })
	var oe *breaker.OpenError
	require.ErrorAs(t, err, &oe)
	assert.False(t, called)
	assert.Equal(t, "youtube", oe.Key)
	assert.Greater(t, oe.RetryIn, time.Duration(0))
}

func TestHalfOpenAfterRecoveryTimeout(t *testing.T) {
	now, advance := newClock(time.Now())
	r := breaker.NewRegistry(breaker.Config{FailureThreshold: 1, RecoveryTimeout: time.Minute, SuccessThreshold: 1}).WithClock(now)
	ctx := context.Background()

	require.Error(t, r.Execute(ctx, "facebook", fail))
	assert.Equal(t, breaker.StateOpen, r.State("facebook"))

	advance(time.Minute)
	assert.Equal(t, breaker.StateHalfOpen, r.State("facebook"))

	// A single success with SuccessThreshold=1 closes the circuit.
	require.NoError(t, r.Execute(ctx, "facebook", ok))
	assert.Equal(t, breaker.StateClosed, r.State("facebook"))
}

func TestHalfOpenFailureReopens(t *testing.T) {
	now, advance := newClock(time.Now())
	r := breaker.NewRegistry(breaker.Config{FailureThreshold: 1, RecoveryTimeout: time.Minute}).WithClock(now)
	ctx := context.Background()

	require.Error(t, r.Execute(ctx, "twitter", fail))
	advance(time.Minute)
	require.Equal(t, breaker.StateHalfOpen, r.State("twitter"))

	require.Error(t, r.Execute(ctx, "twitter", fail))
	assert.Equal(t, breaker.StateOpen, r.State("twitter"))
}

func TestSuccessThresholdTwoNeedsTwoSuccesses(t *testing.T) {
	now, advance := newClock(time.Now())
	r := breaker.NewRegistry(breaker.Config{FailureThreshold: 1, RecoveryTimeout: time.Second, SuccessThreshold: 2}).WithClock(now)
	ctx := context.Background()

	require.Error(t, r.Execute(ctx, "linkedin", fail))
	advance(time.Second)

	require.NoError(t, r.Execute(ctx, "linkedin", ok))
	assert.Equal(t, breaker.StateHalfOpen, r.State("linkedin"))
	require.NoError(t, r.Execute(ctx, "linkedin", ok))
	assert.Equal(t, breaker.StateClosed, r.State("linkedin"))
}

func TestMonitoringPeriodResetsCountersNotState(t *testing.T) {
	now, advance := newClock(time.Now())
	r := breaker.NewRegistry(breaker.Config{FailureThreshold: 2, RecoveryTimeout: time.Hour, MonitoringPeriod: time.Minute}).WithClock(now)
	ctx := context.Background()

	require.Error(t, r.Execute(ctx, "instagram", fail))
	require.Error(t, r.Execute(ctx, "instagram", fail))
	require.Equal(t, breaker.StateOpen, r.State("instagram"))

	// Window rolls over; the open circuit must stay open.
	advance(2 * time.Minute)
	_ = r.Execute(ctx, "instagram", ok)
	assert.Equal(t, breaker.StateOpen, r.State("instagram"))
	m := r.Metrics("instagram")
	assert.Equal(t, 0, m.FailureCount)
}

func TestKeysAreIndependent(t *testing.T) {
	r := breaker.NewRegistry(breaker.Config{FailureThreshold: 1})
	ctx := context.Background()

	require.Error(t, r.Execute(ctx, "youtube", fail))
	assert.Equal(t, breaker.StateOpen, r.State("youtube"))
	assert.Equal(t, breaker.StateClosed, r.State("facebook"))
	require.NoError(t, r.Execute(ctx, "facebook", ok))
}

func TestResetAndResetAll(t *testing.T) {
	r := breaker.NewRegistry(breaker.Config{FailureThreshold: 1})
	ctx := context.Background()

	require.Error(t, r.Execute(ctx, "a", fail))
	require.Error(t, r.Execute(ctx, "b", fail))
	r.Reset("a")
	assert.Equal(t, breaker.StateClosed, r.State("a"))
	assert.Equal(t, breaker.StateOpen, r.State("b"))
	r.ResetAll()
	assert.Equal(t, breaker.StateClosed, r.State("b"))
}

func TestConcurrentFailuresAllCounted(t *testing.T) {
	r := breaker.NewRegistry(breaker.Config{FailureThreshold: 10, RecoveryTimeout: time.Hour})
	ctx := context.Background()

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			_ = r.Execute(ctx, "meta", fail)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
	assert.Equal(t, breaker.StateOpen, r.State("meta"))
}
