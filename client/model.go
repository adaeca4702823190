package client

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/adamwoolhether/pacer/limiter"
)

// maxErrBodySize caps the amount of response body read when
// building an error for an unexpected status code. This prevents
// unbounded memory usage when a large response arrives with a
// wrong status.
const maxErrBodySize = 4 << 10 // 4KB

// defaultRetryBudget bounds how many backoff responses a single
// [Client.Do] call absorbs before giving up.
const defaultRetryBudget = 20

var (
	// ErrUnexpectedStatusCode is the sentinel error wrapped by [UnexpectedStatusError].
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	// ErrRetryBudgetExceeded is returned when one [Client.Do] call
	// receives more backoff responses than the configured budget.
	ErrRetryBudgetExceeded = errors.New("retry budget exceeded")
	// ErrLimiterRequired is returned by [Build] when neither
	// [WithLimiter] nor [WithRateConfig] was provided.
	ErrLimiterRequired = errors.New("a limiter is required; use WithLimiter or WithRateConfig")
)

// UnexpectedStatusError is returned when the HTTP response status code
// does not match the expected value.
type UnexpectedStatusError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("%v: %d, body: %s", e.Err, e.StatusCode, e.Body)
}

func (e *UnexpectedStatusError) Unwrap() error {
	return e.Err
}

// Event describes the outcome of a single call attempt. One Event is
// emitted per attempt, so a [Client.Do] that backs off and retries
// produces several.
type Event struct {
	// CallID uniquely identifies the attempt.
	CallID string `json:"call_id"`
	// Integration is the logical name of the upstream target.
	Integration string `json:"integration"`
	// TenantID is set when the client multiplexes API usage across
	// tenants; empty otherwise.
	TenantID string `json:"tenant_id,omitempty"`

	Method string `json:"method"`
	Path   string `json:"path"`
	// Attempt counts from zero within one Do call.
	Attempt int           `json:"attempt"`
	Elapsed time.Duration `json:"elapsed"`

	// StatusCode is zero when the attempt failed before a response
	// arrived.
	StatusCode int `json:"status_code,omitempty"`
	// Backoff reports whether the attempt drew a throttling response.
	Backoff bool `json:"backoff,omitempty"`
	// Err describes the attempt's error, if any.
	Err string `json:"error,omitempty"`

	// Rate is the limiter's state just after the outcome was applied.
	Rate limiter.Snapshot `json:"rate"`
}

// MetricsFunc receives one [Event] per call attempt. It is intended
// to be wired into Prometheus, StatsD, OpenTelemetry, or similar. A
// panicking callback is recovered and logged; it never corrupts the
// call path.
type MetricsFunc func(Event)

// execFn represents a func to operate on a response.
type execFn func(response *http.Response) error
