package breaker

import (
	"errors"
	"log/slog"

	"github.com/adamwoolhether/pacer/clock"
)

// LogFunc lazily resolves the logger used when the circuit opens.
// A nil LogFunc, or one returning nil, disables breaker logging.
type LogFunc func() *slog.Logger

// Option is a functional option for configuring a [Breaker] via [New].
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

// WithLogFunc enables logging of circuit-open transitions.
func WithLogFunc(fn LogFunc) Option {
	return func(o *options) error {
		o.logFn = fn
		return nil
	}
}

func (b *Breaker) log() *slog.Logger {
	if b.logFn == nil {
		return nil
	}

	return b.logFn()
}
