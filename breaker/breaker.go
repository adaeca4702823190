package breaker

import (
	"fmt"
	"sync"
	"time"

	"github.com/adamwoolhether/pacer/clock"
)

// Breaker is a consecutive-failure circuit breaker guarding one
// integration. It has two stored states, closed and open; the "trial"
// after an open window expires is implicit: the first call at or past
// the boundary is simply allowed through, and its outcome decides
// whether the circuit closes or re-opens for another full interval.
//
// A Breaker is safe for concurrent use; the failure streak and open
// boundary are read-then-written across calls and sit under one lock.
type Breaker struct {
	mu        sync.Mutex
	failures  int
	openUntil time.Time

	name      string
	threshold int
	interval  time.Duration

	clk   clock.Clock
	logFn LogFunc
}

// New constructs a Breaker for the named integration.
func New(name string, cfg Config, optFns ...Option) (*Breaker, error) {
	cfg = cfg.withDefaults()

	if cfg.FailureThreshold < 1 {
		return nil, fmt.Errorf("failure threshold[%d] invalid: %w", cfg.FailureThreshold, ErrInvalidThreshold)
	}
	if cfg.OpenInterval <= 0 {
		return nil, fmt.Errorf("open interval[%s] invalid: %w", cfg.OpenInterval, ErrInvalidOpenInterval)
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying breaker option: %w", err)
		}
	}

	clk := opts.clk
	if clk == nil {
		clk = clock.Real()
	}

	b := &Breaker{
		name:      name,
		threshold: cfg.FailureThreshold,
		interval:  cfg.OpenInterval,
		clk:       clk,
		logFn:     opts.logFn,
	}

	return b, nil
}

// Allow reports whether a call may be attempted right now. While the
// circuit is open it returns an [*OpenError] immediately, without the
// caller touching its transport or rate limiter; that is the
// fail-fast guarantee. Once the open window has passed, Allow permits
// the next call as a trial.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.clk.Now().Before(b.openUntil) {
		return &OpenError{Name: b.name, Until: b.openUntil}
	}

	return nil
}

// Record updates the failure streak with a call's outcome. A success
// resets the streak to zero. A failure increments it, and once the
// streak reaches the threshold the circuit opens for a full interval
// from now; a failed trial therefore pushes the open boundary forward
// again, extending the blackout.
func (b *Breaker) Record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if success {
		b.failures = 0
		return
	}

	b.failures++
	if b.failures >= b.threshold {
		b.openUntil = b.clk.Now().Add(b.interval)

		if logger := b.log(); logger != nil {
			logger.Error("circuit opened",
				"integration", b.name,
				"failures", b.failures,
				"open_until", b.openUntil,
			)
		}
	}
}

// State returns the breaker's current streak and open window.
func (b *Breaker) State() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Snapshot{
		ConsecutiveFailures: b.failures,
		OpenUntil:           b.openUntil,
		Open:                b.clk.Now().Before(b.openUntil),
	}
}
