package engine

import (
	"context"
	"time"
)

// BackoffPolicy bounds retries of transient action failures.
type BackoffPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// DefaultBackoff retries up to 5 attempts: 2s, 4s, 8s, 16s between them,
// capped at one minute.
func DefaultBackoff() BackoffPolicy {
	return BackoffPolicy{
		MaxAttempts:  5,
		InitialDelay: 2 * time.Second,
		Multiplier:   2,
		MaxDelay:     time.Minute,
	}
}

// DelayBefore returns the wait before the given attempt. The first attempt
// has no delay.
func (p BackoffPolicy) DelayBefore(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delay := p.InitialDelay
	for i := 2; i < attempt; i++ {
		delay = time.Duration(float64(delay) * p.Multiplier)
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}

	if delay > p.MaxDelay {
		return p.MaxDelay
	}

	return delay
}

// SleepFunc waits for d or until the context is done. Tests inject a no-op.
type SleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
