package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock drives the limiter with a simulated clock: sleeps advance
// time instead of blocking.
type fakeClock struct {
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) install(l *Limiter) {
	l.now = func() time.Time { return c.now }
	l.sleep = func(_ context.Context, d time.Duration) error {
		c.slept = append(c.slept, d)
		c.now = c.now.Add(d)
		return nil
	}
}

func TestAcquireUnderCeilingDoesNotWait(t *testing.T) {
	l := New(5)
	clock := newFakeClock()
	clock.install(l)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Acquire(ctx))
	}

	assert.Empty(t, clock.slept)
}

func TestAcquireAtCeilingWaitsForWindow(t *testing.T) {
	l := New(2)
	clock := newFakeClock()
	clock.install(l)
	start := clock.now

	ctx := context.Background()
	require.NoError(t, l.Acquire(ctx))
	require.NoError(t, l.Acquire(ctx))
	require.NoError(t, l.Acquire(ctx))

	require.Len(t, clock.slept, 1)
	assert.Equal(t, window+safetyMargin, clock.slept[0])
	assert.False(t, clock.now.Before(start.Add(window)), "third admission must land after the window")
}

func TestRejectionStreakPenalty(t *testing.T) {
	l := New(100)
	clock := newFakeClock()
	clock.install(l)

	l.RecordRejection()
	l.RecordRejection()
	l.RecordRejection()

	require.NoError(t, l.Acquire(context.Background()))

	require.Len(t, clock.slept, 1)
	assert.Equal(t, 9*time.Second, clock.slept[0])
}

func TestPenaltyIsCapped(t *testing.T) {
	l := New(100)
	clock := newFakeClock()
	clock.install(l)

	for i := 0; i < 25; i++ {
		l.RecordRejection()
	}

	require.NoError(t, l.Acquire(context.Background()))

	require.Len(t, clock.slept, 1)
	assert.Equal(t, penaltyCap, clock.slept[0])
}

func TestStreakDecayRequiresQuietMinute(t *testing.T) {
	l := New(100)
	clock := newFakeClock()
	clock.install(l)

	l.RecordRejection()
	l.RecordRejection()

	// Too soon after the last rejection: no decay.
	l.RecordSuccess()
	assert.Equal(t, 2, l.Streak())

	clock.now = clock.now.Add(rejectionHold + time.Second)
	l.RecordSuccess()
	assert.Equal(t, 1, l.Streak())
}

func TestZeroCeilingNeverBlocks(t *testing.T) {
	l := New(0)
	clock := newFakeClock()
	clock.install(l)

	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		require.NoError(t, l.Acquire(ctx))
	}
	assert.Empty(t, clock.slept)
}

func TestAcquireHonorsCancellation(t *testing.T) {
	l := New(1)
	clock := newFakeClock()
	l.now = func() time.Time { return clock.now }
	l.sleep = sleepContext

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, l.Acquire(ctx))

	cancel()
	err := l.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
