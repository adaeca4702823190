package limiter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/adamwoolhether/pacer/clock"
)

// Limiter is an adaptive token-bucket rate limiter with AIMD tuning.
// The rate rises by a fixed step on each success and shrinks by a
// multiplicative factor on each backoff signal, staying within
// [MinRate, MaxRate]. Backoff signals also open a cooldown window
// during which no tokens are handed out, regardless of bucket
// contents, so explicit retry-after hints from upstream are honored.
//
// A Limiter is safe for concurrent use. One instance should guard one
// upstream target.
type Limiter struct {
	mu            sync.Mutex
	rate          float64 // requests per second
	tokens        float64
	lastRefill    time.Time
	cooldownUntil time.Time

	minRate        float64
	maxRate        float64
	increaseStep   float64
	decreaseFactor float64

	clk   clock.Clock
	logFn LogFunc
}

// New constructs a Limiter from cfg, applying defaults for any of the
// tuning bounds left zero. It fails if the initial rate is not
// positive or the decrease factor is outside (0, 1].
func New(cfg Config, optFns ...Option) (*Limiter, error) {
	cfg = cfg.withDefaults()

	if cfg.InitialRate <= 0 {
		return nil, fmt.Errorf("initial rate[%g] invalid: %w", cfg.InitialRate, ErrInvalidInitialRate)
	}
	if cfg.DecreaseFactor <= 0 || cfg.DecreaseFactor > 1 {
		return nil, fmt.Errorf("decrease factor[%g] invalid: %w", cfg.DecreaseFactor, ErrInvalidDecreaseFactor)
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying limiter option: %w", err)
		}
	}

	clk := opts.clk
	if clk == nil {
		clk = clock.Real()
	}

	l := &Limiter{
		rate:           cfg.InitialRate,
		tokens:         cfg.InitialRate, // start with one second worth of credit
		lastRefill:     clk.Now(),
		minRate:        cfg.MinRate,
		maxRate:        cfg.MaxRate,
		increaseStep:   cfg.IncreaseStep,
		decreaseFactor: cfg.DecreaseFactor,
		clk:            clk,
		logFn:          opts.logFn,
	}

	return l, nil
}

// refill credits the bucket for time elapsed since the last refill,
// capped at two seconds worth of credit at the current rate. The cap
// is recomputed from the live rate on every call, so a rate change is
// reflected immediately. Callers must hold l.mu.
func (l *Limiter) refill(now time.Time) {
	elapsed := now.Sub(l.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}

	l.tokens += elapsed * l.rate

	if maxTokens := 2.0 * l.rate; l.tokens > maxTokens {
		l.tokens = maxTokens
	}

	l.lastRefill = now
}

// Acquire blocks until one token is available and no cooldown window
// is active, then consumes the token and returns nil. It should be
// called immediately before each outbound request.
//
// The wait is re-evaluated against the live rate after every sleep, so
// a backoff that lands while a caller waits lengthens that caller's
// wait accordingly. Sleeping happens outside the limiter's lock;
// other callers can consume tokens and report outcomes while one
// waits. Acquire returns early with an error wrapping ctx.Err() if
// the context ends first.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w early: %w", ErrContextEnded, err)
	}

	for {
		l.mu.Lock()
		now := l.clk.Now()

		var wait time.Duration
		if now.Before(l.cooldownUntil) {
			wait = l.cooldownUntil.Sub(now)
		} else {
			l.refill(now)

			if l.tokens >= 1.0 {
				l.tokens--
				l.mu.Unlock()
				return nil
			}

			if l.rate > 0 {
				missing := 1.0 - l.tokens
				wait = time.Duration(missing / l.rate * float64(time.Second))
				if wait < minWait {
					wait = minWait
				}
			} else {
				wait = fallbackWait
			}
		}
		l.mu.Unlock()

		if err := l.clk.Sleep(ctx, wait); err != nil {
			return fmt.Errorf("%w waiting for token: %w", ErrContextEnded, err)
		}
	}
}

// OnSuccess records a successful outcome, nudging the rate up by the
// additive step. The rate never exceeds the configured maximum.
// Tokens and cooldown are untouched.
func (l *Limiter) OnSuccess() {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.rate
	l.rate = min(l.maxRate, l.rate+l.increaseStep)

	if l.rate != prev {
		if logger := l.log(); logger != nil {
			logger.Debug("limiter rate increased", "previous_rate", prev, "new_rate", l.rate)
		}
	}
}

// OnBackoff records a throttling or overload signal, shrinking the
// rate by the multiplicative factor (floored at the minimum) and
// opening a cooldown window.
//
// retryAfter is an optional hint from upstream, e.g. a parsed
// Retry-After header. If it is not positive, a conservative default
// of one second per unit of current rate is derived, clamped to
// [1s, 60s]. The cooldown boundary only ever moves forward: repeated
// backoffs extend it, never shrink it. Tokens are trimmed to at most
// the new rate so stale credit can't burn through a reduced limit.
func (l *Limiter) OnBackoff(retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.rate
	l.rate = max(l.minRate, l.rate*l.decreaseFactor)

	now := l.clk.Now()

	cooldown := retryAfter
	if cooldown <= 0 {
		cooldown = time.Duration(float64(time.Second) / l.rate)
		if cooldown < minCooldown {
			cooldown = minCooldown
		}
		if cooldown > maxCooldown {
			cooldown = maxCooldown
		}
	}

	if until := now.Add(cooldown); until.After(l.cooldownUntil) {
		l.cooldownUntil = until
	}

	if l.tokens > l.rate {
		l.tokens = l.rate
	}

	if logger := l.log(); logger != nil {
		logger.Warn("limiter backoff triggered",
			"previous_rate", prev,
			"new_rate", l.rate,
			"retry_after", retryAfter.String(),
			"cooldown_until", l.cooldownUntil,
		)
	}
}

// Snapshot returns the limiter's current rate, token count, and
// cooldown boundary for observability.
func (l *Limiter) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	return Snapshot{
		Rate:          l.rate,
		Tokens:        l.tokens,
		CooldownUntil: l.cooldownUntil,
	}
}
