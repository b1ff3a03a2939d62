package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load allocates a fresh T and fills it from environment variables.
// T uses `env` tags to define the mappings.
//
// Example:
//
//	type Config struct {
//	    Port      int    `env:"GATEWAY_HTTP_PORT" envDefault:"8080"`
//	    TargetAPI string `env:"TARGET_API"`
//	}
func Load[T any]() (*T, error) {
	cfg := new(T)
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
