package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadOverrides reads integration configurations from a JSON file.
// The file must contain an object mapping integration names to
// configuration objects:
//
//	{
//	  "my-internal-api": {
//	    "base_url": "https://internal.example.com/api",
//	    "initial_rate": 5.0,
//	    "min_rate": 1.0,
//	    "max_rate": 20.0,
//	    "increase_step": 0.5,
//	    "decrease_factor": 0.5,
//	    "limit_note": "Internal service, tuned for higher throughput."
//	  }
//	}
//
// An entry may omit "name"; the map key is used. Every entry is
// validated before being returned; the first invalid entry fails the
// whole load.
func LoadOverrides(path string) (map[string]Integration, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading overrides file: %w", err)
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("overrides must be a JSON object of integrations: %w", err)
	}

	overrides := make(map[string]Integration, len(entries))
	for name, data := range entries {
		var cfg Integration
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("decoding override %q: %w", name, err)
		}

		if cfg.Name == "" {
			cfg.Name = name
		}

		if err := Validate(cfg); err != nil {
			return nil, fmt.Errorf("override %q: %w", name, err)
		}

		overrides[name] = cfg
	}

	return overrides, nil
}

// Merged returns a new mapping combining the built-in registry with
// overrides; an override replaces a built-in entry of the same name.
func Merged(overrides map[string]Integration) map[string]Integration {
	merged := make(map[string]Integration, len(builtin)+len(overrides))
	for name, cfg := range builtin {
		merged[name] = cfg
	}
	for name, cfg := range overrides {
		merged[name] = cfg
	}

	return merged
}
