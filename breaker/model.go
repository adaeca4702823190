package breaker

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrOpen is the sentinel wrapped by [OpenError] when a call is
	// rejected because the circuit is open.
	ErrOpen = errors.New("circuit open")
	// ErrInvalidThreshold is returned by [New] for a failure
	// threshold below one.
	ErrInvalidThreshold = errors.New("failure threshold must be at least one")
	// ErrInvalidOpenInterval is returned by [New] for a non-positive
	// open interval.
	ErrInvalidOpenInterval = errors.New("open interval must be greater than zero")
)

// Config controls when a [Breaker] opens and for how long.
// Zero-valued fields fall back to the defaults below.
type Config struct {
	// FailureThreshold is how many consecutive failures open the
	// circuit. Default 5.
	FailureThreshold int

	// OpenInterval is how long the circuit stays open before the
	// next trial call is allowed through. Default 30s.
	OpenInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	if c.OpenInterval == 0 {
		c.OpenInterval = 30 * time.Second
	}

	return c
}

// OpenError is returned by [Breaker.Allow] while the circuit is open.
// It names the integration and reports when attempts resume.
type OpenError struct {
	Name  string
	Until time.Time
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("%v for %q until %s", ErrOpen, e.Name, e.Until.Format(time.RFC3339Nano))
}

func (e *OpenError) Unwrap() error {
	return ErrOpen
}

// Snapshot is a point-in-time view of a [Breaker]'s state for
// observability.
type Snapshot struct {
	// ConsecutiveFailures is the current failure streak.
	ConsecutiveFailures int `json:"consecutive_failures"`
	// OpenUntil is when the current open window ends; zero if the
	// circuit has never opened.
	OpenUntil time.Time `json:"open_until"`
	// Open reports whether calls are currently being rejected.
	Open bool `json:"open"`
}
