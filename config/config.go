package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/adamwoolhether/pacer/breaker"
	"github.com/adamwoolhether/pacer/limiter"
)

// ErrUnknownIntegration is returned by [Lookup] for a name with no
// registered configuration.
var ErrUnknownIntegration = errors.New("unknown integration")

// Integration holds the rate-limiting configuration for one upstream
// API. All numeric fields are required; LimitNote is free text
// recording the vendor's documented limits or how the numbers were
// chosen.
type Integration struct {
	Name    string `json:"name" validate:"required"`
	BaseURL string `json:"base_url" validate:"required,url"`

	InitialRate    float64 `json:"initial_rate" validate:"required,gt=0"`
	MinRate        float64 `json:"min_rate" validate:"required,gt=0"`
	MaxRate        float64 `json:"max_rate" validate:"required,gtefield=MinRate"`
	IncreaseStep   float64 `json:"increase_step" validate:"required,gt=0"`
	DecreaseFactor float64 `json:"decrease_factor" validate:"required,gt=0,lte=1"`

	LimitNote string `json:"limit_note,omitempty"`
}

// LimiterConfig maps the integration's tuning numbers onto a
// [limiter.Config].
func (i Integration) LimiterConfig() limiter.Config {
	return limiter.Config{
		InitialRate:    i.InitialRate,
		MinRate:        i.MinRate,
		MaxRate:        i.MaxRate,
		IncreaseStep:   i.IncreaseStep,
		DecreaseFactor: i.DecreaseFactor,
	}
}

// DefaultBreaker is the breaker configuration applied to every
// integration unless the caller overrides it.
func DefaultBreaker() breaker.Config {
	return breaker.Config{
		FailureThreshold: 5,
		OpenInterval:     30 * time.Second,
	}
}

// builtin holds conservative starting points for commonly-used APIs.
// The values don't claim to mirror current vendor documentation;
// they are safe defaults the AIMD tuning can explore around.
var builtin = map[string]Integration{
	"notion": {
		Name:           "notion",
		BaseURL:        "https://api.notion.com/v1",
		InitialRate:    2.0,
		MinRate:        0.3,
		MaxRate:        3.5,
		IncreaseStep:   0.1,
		DecreaseFactor: 0.5,
		LimitNote:      "Conservative starting point near typical Notion guidance of a few requests per second per integration.",
	},
	"vanta": {
		Name:           "vanta",
		BaseURL:        "https://api.vanta.com",
		InitialRate:    2.0,
		MinRate:        0.5,
		MaxRate:        5.0,
		IncreaseStep:   0.2,
		DecreaseFactor: 0.5,
		LimitNote:      "Placeholder configuration for the Vanta API. Tune based on observed behavior and vendor guidance.",
	},
	"fieldguide": {
		Name:           "fieldguide",
		BaseURL:        "https://api.fieldguide.io",
		InitialRate:    2.0,
		MinRate:        0.5,
		MaxRate:        5.0,
		IncreaseStep:   0.2,
		DecreaseFactor: 0.5,
		LimitNote:      "Placeholder configuration for the Fieldguide API. Tune based on observed behavior and vendor guidance.",
	},
}

// Lookup returns the configuration registered under name. The error
// for an unknown name lists the available integrations to help with
// debugging.
func Lookup(name string) (Integration, error) {
	cfg, ok := builtin[name]
	if !ok {
		available := make([]string, 0, len(builtin))
		for k := range builtin {
			available = append(available, k)
		}
		sort.Strings(available)

		return Integration{}, fmt.Errorf("%w %q, available: %s", ErrUnknownIntegration, name, strings.Join(available, ", "))
	}

	return cfg, nil
}

// Integrations returns a mapping of registered integration name to
// base URL, for CLIs and dashboards that want to show what's
// configured by default.
func Integrations() map[string]string {
	out := make(map[string]string, len(builtin))
	for name, cfg := range builtin {
		out[name] = cfg.BaseURL
	}

	return out
}
