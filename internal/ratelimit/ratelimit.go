package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	window        = time.Minute
	safetyMargin  = 500 * time.Millisecond
	penaltyStep   = 3 * time.Second
	penaltyCap    = time.Minute
	rejectionHold = time.Minute
)

// Limiter enforces a calls-per-minute ceiling over a sliding window and
// adds a growing cooldown while the remote keeps rejecting us.
//
// The mutex is held across the whole decision-and-wait in Acquire, so
// concurrent callers are admitted in FIFO-ish order at the cost of
// serializing their waits. Waits remain context-cancellable.
type Limiter struct {
	mu            sync.Mutex
	ceiling       int
	calls         []time.Time
	streak        int
	lastRejection time.Time

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// New creates a limiter admitting at most callsPerMinute requests in any
// 60-second window. A zero or negative ceiling disables limiting.
func New(callsPerMinute int) *Limiter {
	return &Limiter{
		ceiling: callsPerMinute,
		now:     time.Now,
		sleep:   sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Acquire blocks until one more request may be issued, then records it.
// The admission timestamp is recorded only after every wait completes.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l.ceiling <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	for len(l.calls) >= l.ceiling {
		wait := window - now.Sub(l.calls[0]) + safetyMargin
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
		now = l.now()
		l.prune(now)
	}

	if l.streak > 0 {
		penalty := time.Duration(l.streak) * penaltyStep
		if penalty > penaltyCap {
			penalty = penaltyCap
		}
		if err := l.sleep(ctx, penalty); err != nil {
			return err
		}
		now = l.now()
	}

	l.calls = append(l.calls, now)
	return nil
}

// prune drops call timestamps that have aged out of the window.
// Caller holds the mutex.
func (l *Limiter) prune(now time.Time) {
	cut := 0
	for cut < len(l.calls) && now.Sub(l.calls[cut]) > window {
		cut++
	}
	if cut > 0 {
		l.calls = append(l.calls[:0], l.calls[cut:]...)
	}
}

// RecordRejection notes one more consecutive rate-limit rejection.
func (l *Limiter) RecordRejection() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.streak++
	l.lastRejection = l.now()
}

// RecordSuccess decays the rejection streak by one, but only once the
// remote has gone a full minute without rejecting us.
func (l *Limiter) RecordSuccess() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.streak > 0 && l.now().Sub(l.lastRejection) > rejectionHold {
		l.streak--
	}
}

// Streak reports the current consecutive-rejection count.
func (l *Limiter) Streak() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.streak
}
