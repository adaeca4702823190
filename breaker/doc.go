// Package breaker implements a consecutive-failure circuit breaker
// that stops attempting calls against a consistently failing upstream
// for a fixed window, then lets a single trial call probe recovery.
//
// # Usage
//
// Consult [Breaker.Allow] before each call and report the outcome
// with [Breaker.Record]:
//
//	b, err := breaker.New("notion", breaker.Config{
//		FailureThreshold: 5,
//		OpenInterval:     30 * time.Second,
//	})
//
//	if err := b.Allow(); err != nil {
//		var oe *breaker.OpenError
//		if errors.As(err, &oe) { ... } // fail fast, don't call upstream
//	}
//	err := callUpstream(ctx)
//	b.Record(err == nil)
//
// The breaker is independent of any rate limiter; callers compose the
// two by consulting the breaker first, so an open circuit never
// spends a rate-limit token.
package breaker
