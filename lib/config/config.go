// Package config loads the settings of aura tools from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the settings shared by the aura CLI commands.
type Config struct {
	// Endpoint is the URL server action batches are posted to.
	Endpoint string `env:"AURA_ENDPOINT" envDefault:"http://localhost:8080/aura"`
	// SigningKey is shared with the server and signs (or seals) payloads.
	SigningKey string `env:"AURA_SIGNING_KEY"`
	// Sealed encrypts payloads instead of signing them.
	Sealed bool `env:"AURA_SEALED" envDefault:"false"`

	LogLevel string `env:"AURA_LOG_LEVEL" envDefault:"info"`

	FlushInterval time.Duration `env:"AURA_FLUSH_INTERVAL" envDefault:"50ms"`
	CabooseMaxAge time.Duration `env:"AURA_CABOOSE_MAX_AGE" envDefault:"0s"`
	MaxRetries    uint          `env:"AURA_MAX_RETRIES" envDefault:"3"`
	Timeout       time.Duration `env:"AURA_TIMEOUT" envDefault:"30s"`
}

// Load reads a .env file from the given paths (defaulting to ./.env) when
// present, then parses the environment. Variables already set in the
// environment win over the file.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	return Parse()
}

// Parse builds a Config from the process environment only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that env parsing cannot.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("AURA_ENDPOINT must not be empty")
	}
	if c.FlushInterval <= 0 {
		return errors.New("AURA_FLUSH_INTERVAL must be positive")
	}
	if c.CabooseMaxAge < 0 {
		return errors.New("AURA_CABOOSE_MAX_AGE must not be negative")
	}
	return nil
}
