package clock

import (
	"context"
	"sync"
	"time"
)

// Fake is a manually-advanced Clock for deterministic tests.
// Sleep advances the fake time instead of blocking, so a test can
// exercise minutes of limiter behavior in microseconds. The zero
// value is not usable; construct with [NewFake].
type Fake struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

// NewFake returns a Fake clock starting at the given time.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.now
}

// Sleep advances the clock by d and records the requested duration.
func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if d > 0 {
		f.now = f.now.Add(d)
		f.slept = append(f.slept, d)
	}

	return nil
}

// Advance moves the clock forward by d without recording a sleep.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.now = f.now.Add(d)
}

// Slept returns a copy of all durations passed to Sleep so far.
func (f *Fake) Slept() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]time.Duration, len(f.slept))
	copy(out, f.slept)

	return out
}
