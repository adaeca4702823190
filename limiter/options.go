package limiter

import (
	"errors"
	"log/slog"

	"github.com/adamwoolhether/pacer/clock"
)

// LogFunc lazily resolves the logger used for rate-change records,
// making option ordering irrelevant. A nil LogFunc, or one returning
// nil, disables limiter logging.
type LogFunc func() *slog.Logger

// Option is a functional option for configuring a [Limiter] via [New].
type Option func(*options) error

type options struct {
	clk   clock.Clock
	logFn LogFunc
}

// WithClock replaces the system clock, typically with a fake in tests.
func WithClock(clk clock.Clock) Option {
	return func(o *options) error {
		if clk == nil {
			return errors.New("clock must not be nil")
		}
		o.clk = clk
		return nil
	}
}

// WithLogFunc enables logging of rate increases and backoffs.
func WithLogFunc(fn LogFunc) Option {
	return func(o *options) error {
		o.logFn = fn
		return nil
	}
}

func (l *Limiter) log() *slog.Logger {
	if l.logFn == nil {
		return nil
	}

	return l.logFn()
}
