package app

import (
	"errors"
	"fmt"
	"strings"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Root       string // project directory
	ConfigPath string // project config file; discovered in Root when empty

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	WorkerCount     int
	// Optimize forces optimization regardless of the project config.
	Optimize bool
}

// NewConfig validates cfg and fills defaults.
func NewConfig(cfg Config) (*Config, error) {
	var errs []string

	if cfg.Root == "" {
		cfg.Root = "."
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		errs = append(errs, "invalid log-format: must be 'text' or 'json'")
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	switch cfg.LogLevel {
	case "":
		cfg.LogLevel = "info"
	case "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}

	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		errs = append(errs, fmt.Sprintf("invalid healthcheck-port %d: must be between 0 and 65535", cfg.HealthcheckPort))
	}
	if cfg.WorkerCount < 0 {
		errs = append(errs, fmt.Sprintf("invalid workers %d: must not be negative", cfg.WorkerCount))
	}

	if len(errs) > 0 {
		return nil, errors.New(strings.Join(errs, "; "))
	}
	return &cfg, nil
}
