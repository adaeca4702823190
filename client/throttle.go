package client

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

var (
	// ErrMustNotBeZero is returned by [WithFixedThrottle] for a
	// non-positive rps or burst.
	ErrMustNotBeZero = errors.New("must be greater than zero")
	// ErrThrottleWait wraps failures while waiting on the fixed throttle.
	ErrThrottleWait = errors.New("fixed throttle waiting failed")
)

type throttleConfig struct {
	RPS   int
	Burst int
}

// throttleRoundTripper enforces a static ceiling on outbound calls
// with a [rate.Limiter] token bucket. It sits under the adaptive
// limiter: even when AIMD tuning has pushed the dynamic rate up, no
// more than the fixed rps leaves the process.
type throttleRoundTripper struct {
	limiter *rate.Limiter
	rps     int
	burst   int
	next    http.RoundTripper
	logFn   func() *slog.Logger
}

func newThrottleRoundTripper(rps, burst int, logFn func() *slog.Logger, next http.RoundTripper) (http.RoundTripper, error) {
	if rps <= 0 || burst <= 0 {
		return nil, fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, ErrMustNotBeZero)
	}

	t := &throttleRoundTripper{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		rps:     rps,
		burst:   burst,
		next:    next,
		logFn:   logFn,
	}

	return t, nil
}

func (t *throttleRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()

	var waited time.Duration
	logger := t.logFn()
	if logger != nil && !t.limiter.Allow() {
		logger.Info("fixed throttle tokens exhausted", "rate", t.rps, "burst", t.burst, "path", r.URL.Path)

		defer func() {
			logger.Info("fixed throttle wait complete", "waited", waited.String(), "rate", t.rps, "burst", t.burst)
		}()
	}

	start := time.Now()

	err := t.limiter.Wait(ctx)
	waited = time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrThrottleWait, err)
	}

	return t.next.RoundTrip(r)
}
