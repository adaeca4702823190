// Package limiter provides an adaptive token-bucket rate limiter
// with AIMD (additive-increase/multiplicative-decrease) tuning and
// cooldown-window support, for pacing outbound calls against a
// remote service whose true capacity is unknown or varies.
//
// # Usage
//
// Build a [Limiter] and drive it around each call:
//
//	l, err := limiter.New(limiter.Config{
//		InitialRate:    2.0, // requests per second
//		MinRate:        0.5,
//		MaxRate:        10.0,
//		IncreaseStep:   0.2,
//		DecreaseFactor: 0.5,
//	})
//
//	if err := l.Acquire(ctx); err != nil { ... } // blocks until permitted
//	resp, err := callUpstream(ctx)
//	switch {
//	case isThrottled(resp):
//		l.OnBackoff(retryAfterHint(resp))
//	default:
//		l.OnSuccess()
//	}
//
// The limiter performs no I/O and never retries on its own; retry
// loops and retry budgets belong to the caller. [Limiter.Snapshot]
// exposes the state a caller needs for those decisions.
package limiter
