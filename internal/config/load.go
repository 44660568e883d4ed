package config

import (
	"errors"
	"fmt"
	"os"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, parses, applies environment overrides, and validates
// the runtime configuration.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	loaded := Loaded{Path: resolvedPath, Config: Default()}
	content, err := os.ReadFile(resolvedPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		loaded.Warnings = append(loaded.Warnings, Warning{
			Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
		})
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	default:
		cfg, warnings, err := Parse(string(content), loaded.Config)
		if err != nil {
			return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
		}
		loaded.Config = cfg
		loaded.Warnings = append(loaded.Warnings, warnings...)
		loaded.Exists = true
	}

	envWarnings, err := applyEnv(&loaded.Config)
	if err != nil {
		return Loaded{}, err
	}
	if len(envWarnings) > 0 {
		validated, err := Validate(loaded.Config)
		if err != nil {
			return Loaded{}, fmt.Errorf("validate environment overrides: %w", err)
		}
		loaded.Warnings = append(loaded.Warnings, envWarnings...)
		loaded.Warnings = appendNew(loaded.Warnings, validated)
	}

	return loaded, nil
}

func appendNew(existing []Warning, more []Warning) []Warning {
	for _, w := range more {
		dup := false
		for _, e := range existing {
			if e == w {
				dup = true
				break
			}
		}
		if !dup {
			existing = append(existing, w)
		}
	}
	return existing
}
