// Package config is the per-integration rate configuration registry.
//
// It ships conservative built-in tuning for commonly-used APIs
// (notion, vanta, fieldguide), retrievable with [Lookup], and
// supports extending or replacing those defaults from a simple JSON
// file with [LoadOverrides] and [Merged]:
//
//	overrides, err := config.LoadOverrides("rates.json")
//	configs := config.Merged(overrides)
//	cfg := configs["my-internal-api"]
//	l, err := limiter.New(cfg.LimiterConfig())
//
// Every configuration is validated against its declared constraints
// before use; see [Validate].
package config
