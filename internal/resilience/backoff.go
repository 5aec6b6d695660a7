package resilience

import (
	"context"
	"math/rand"
	"time"
)

// SleepWithContext waits for d or until ctx is cancelled. Returns false when
// the wait was cut short by cancellation.
func SleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// ExpBackoff returns initial * multiplier^attempt, clamped to max.
func ExpBackoff(attempt int, initial, max time.Duration, multiplier float64) time.Duration {
	if multiplier <= 1 {
		multiplier = 2
	}
	d := float64(initial)
	for i := 0; i < attempt; i++ {
		d *= multiplier
		if max > 0 && d >= float64(max) {
			return max
		}
	}
	return time.Duration(d)
}

// WithJitter applies +/-20% jitter so concurrent retries don't align.
func WithJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	j := 0.8 + rand.Float64()*0.4
	return time.Duration(float64(d) * j)
}
