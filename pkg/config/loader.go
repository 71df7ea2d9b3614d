package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load populates cfg from the process environment using `env` and
// `envDefault` struct tags.
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// LoadFrom populates cfg from the given variables instead of the process
// environment.
func LoadFrom(cfg any, vars map[string]string) error {
	if err := env.ParseWithOptions(cfg, env.Options{Environment: vars}); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
