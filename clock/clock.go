// Package clock abstracts time for components that need to measure
// elapsed time and suspend callers. Injecting a [Clock] lets tests
// simulate long waits without real delays.
package clock

import (
	"context"
	"time"
)

// Clock supplies the current time and a context-aware sleep.
type Clock interface {
	// Now returns the current time. Implementations must be
	// monotonically non-decreasing.
	Now() time.Time

	// Sleep suspends the caller for d, or until ctx is done,
	// whichever comes first. It returns ctx.Err() if the context
	// ended the wait early.
	Sleep(ctx context.Context, d time.Duration) error
}

// Real returns a Clock backed by the system's monotonic clock.
func Real() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
