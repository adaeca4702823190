// Package pacer exposes client builders for adaptive, rate-limited
// API access.
package pacer

import (
	"fmt"

	"github.com/adamwoolhether/pacer/client"
	"github.com/adamwoolhether/pacer/config"
)

// New instantiates a *client.Client for a registered integration,
// using its tuning numbers from the [config] registry and the default
// breaker thresholds. Additional options may override either.
func New(name string, opts ...client.Option) (*client.Client, error) {
	cfg, err := config.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("looking up integration: %w", err)
	}

	return NewFromConfig(cfg, opts...)
}

// NewFromConfig instantiates a *client.Client from an explicit
// integration configuration, e.g. one loaded via
// [config.LoadOverrides].
func NewFromConfig(cfg config.Integration, opts ...client.Option) (*client.Client, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating integration config: %w", err)
	}

	defaults := []client.Option{
		client.WithRateConfig(cfg.LimiterConfig()),
		client.WithBreakerConfig(config.DefaultBreaker()),
	}

	return client.Build(cfg.Name, append(defaults, opts...)...)
}
