// Package config loads process configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix namespaces every variable read by ParseEnv.
const EnvPrefix = "CLASSROOM_SPACE_"

// ParseEnv loads configuration from prefixed environment variables, so a
// field tagged `env:"ROOMS_DB_PATH"` reads CLASSROOM_SPACE_ROOMS_DB_PATH.
func ParseEnv(target any) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
