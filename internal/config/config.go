// Package config provides configuration management for the application
package config

import (
	"agentterm/internal/logger"
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config contains all configuration for the application
type Config struct {
	// Logging
	Debug bool `envconfig:"DEBUG" default:"false"`

	// Locations
	ConfigFile string `envconfig:"AGENTTERM_CONFIG" default:"config.json"`
	AgentsDir  string `envconfig:"AGENTTERM_AGENTS_DIR" default:"agents"`

	// Provider call settings
	Timeout   time.Duration `envconfig:"AGENTTERM_TIMEOUT" default:"2m"`
	MaxTokens int64         `envconfig:"MAX_TOKENS" default:"1024"`

	// Session limits, 0 for unlimited
	MaxTurns           int           `envconfig:"AGENTTERM_MAX_TURNS" default:"0"`
	MaxSessionDuration time.Duration `envconfig:"AGENTTERM_MAX_SESSION" default:"0"`

	Credentials Credentials

	// User interface settings
	GetUserMessage func() (string, bool) `ignored:"true"`
}

// LoadFromEnv loads configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func LoadFromEnv() (*Config, error) {
	log := logger.Get()
	log.Debug().Msg("Loading configuration from environment")

	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Error().Err(err).Msg("Invalid environment configuration")
		return nil, &ErrConfiguration{Field: "environment", Err: err}
	}

	log.Debug().
		Str("configFile", cfg.ConfigFile).
		Str("agentsDir", cfg.AgentsDir).
		Dur("timeout", cfg.Timeout).
		Int64("maxTokens", cfg.MaxTokens).
		Strs("credentials", cfg.Credentials.Available()).
		Msg("Loaded configuration")

	return &cfg, nil
}

// WithDefaults sets default values for configuration fields that aren't set
func (c *Config) WithDefaults() *Config {
	log := logger.Get()
	log.Debug().Msg("Applying default configuration values")

	if c.ConfigFile == "" {
		c.ConfigFile = "config.json"
	}

	if c.AgentsDir == "" {
		c.AgentsDir = "agents"
	}

	if c.Timeout <= 0 {
		c.Timeout = 2 * time.Minute
	}

	// Set default max tokens if not specified
	if c.MaxTokens <= 0 {
		c.MaxTokens = 1024
	}

	// Set default user message function if not specified
	if c.GetUserMessage == nil {
		scanner := bufio.NewScanner(os.Stdin)
		c.GetUserMessage = func() (string, bool) {
			if !scanner.Scan() {
				return "", false
			}
			return scanner.Text(), true
		}
	}

	return c
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	log := logger.Get()
	log.Debug().Msg("Validating configuration")

	if c.Timeout <= 0 {
		return &ErrConfiguration{Field: "AGENTTERM_TIMEOUT", Reason: fmt.Sprintf("must be positive, got %s", c.Timeout)}
	}

	if c.MaxTokens <= 0 {
		return &ErrConfiguration{Field: "MAX_TOKENS", Reason: fmt.Sprintf("must be positive, got %d", c.MaxTokens)}
	}

	if c.MaxTurns < 0 {
		return &ErrConfiguration{Field: "AGENTTERM_MAX_TURNS", Reason: fmt.Sprintf("must not be negative, got %d", c.MaxTurns)}
	}

	if c.MaxSessionDuration < 0 {
		return &ErrConfiguration{Field: "AGENTTERM_MAX_SESSION", Reason: fmt.Sprintf("must not be negative, got %s", c.MaxSessionDuration)}
	}

	if c.GetUserMessage == nil {
		log.Error().Msg("GetUserMessage function is not configured")
		return &ErrConfiguration{Field: "GetUserMessage", Reason: "function is required"}
	}

	if len(c.Credentials.Available()) == 0 {
		log.Warn().Msg("No provider credentials configured")
	}

	return nil
}
