package config

import (
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// loadDotEnv is a seam for tests; a missing .env file is not an error.
var loadDotEnv = func() {
	_ = godotenv.Load()
}

// parseEnv overlays values from the process environment, after merging a
// local .env file when one exists. Unset variables leave fields untouched.
func parseEnv(config *Config) error {
	loadDotEnv()
	return env.Parse(config)
}
