package limiter

import (
	"errors"
	"time"
)

const (
	// minWait floors the sleep between token checks so a nearly-full
	// bucket doesn't cause a tight wake-sleep loop.
	minWait = 10 * time.Millisecond

	// fallbackWait is the retry interval used if the rate has been
	// driven to zero; a conservative pause instead of spinning.
	fallbackWait = 500 * time.Millisecond

	// minCooldown and maxCooldown bound the derived cooldown used
	// when a backoff signal arrives without an explicit retry-after.
	minCooldown = 1 * time.Second
	maxCooldown = 60 * time.Second
)

var (
	// ErrInvalidInitialRate is returned by [New] when the configured
	// initial rate is not greater than zero.
	ErrInvalidInitialRate = errors.New("initial rate must be greater than zero")
	// ErrInvalidDecreaseFactor is returned by [New] when the decrease
	// factor falls outside (0, 1].
	ErrInvalidDecreaseFactor = errors.New("decrease factor must be in (0, 1]")
	// ErrContextEnded wraps the context error when [Limiter.Acquire]
	// is abandoned before a token was obtained.
	ErrContextEnded = errors.New("limiter context ended")
)

// Config holds the AIMD tuning parameters for a [Limiter].
// Zero-valued fields other than InitialRate fall back to the
// defaults below.
type Config struct {
	// InitialRate is the starting rate in requests per second.
	// Required; must be greater than zero.
	InitialRate float64

	// MinRate is the lower bound for the dynamic rate. Default 0.1.
	MinRate float64

	// MaxRate is the upper bound for the dynamic rate. Default 50.0.
	MaxRate float64

	// IncreaseStep is the additive increment applied on each
	// successful request. Default 0.1.
	IncreaseStep float64

	// DecreaseFactor is the multiplicative factor applied to the rate
	// on a backoff signal. Must be in (0, 1]; default 0.5. A factor
	// of 1 leaves the rate alone and only applies the cooldown.
	DecreaseFactor float64
}

func (c Config) withDefaults() Config {
	if c.MinRate == 0 {
		c.MinRate = 0.1
	}
	if c.MaxRate == 0 {
		c.MaxRate = 50.0
	}
	if c.IncreaseStep == 0 {
		c.IncreaseStep = 0.1
	}
	if c.DecreaseFactor == 0 {
		c.DecreaseFactor = 0.5
	}

	return c
}

// Snapshot is a point-in-time view of a [Limiter]'s internals,
// intended for metrics and logging. It is read under the limiter's
// lock but is not synchronized with in-flight acquires; staleness of
// microseconds is expected and fine for observability.
type Snapshot struct {
	// Rate is the current dynamic rate in requests per second.
	Rate float64 `json:"rate"`
	// Tokens is the number of available credits in the bucket.
	Tokens float64 `json:"tokens"`
	// CooldownUntil is the time before which no credits may be
	// consumed. Zero if no cooldown has ever been applied.
	CooldownUntil time.Time `json:"cooldown_until"`
}
