package model

import (
	"errors"
	"fmt"
)

// Environment names of the two configuration profiles
const (
	EnvironmentProduction = "production"
	EnvironmentSimple     = "simple"
)

// Config holds the effective application configuration.
// It is built once at boot and never mutated afterwards.
type Config struct {
	Environment string
	Server      ServerConfig
	Auth        AuthConfig
	RateLimit   RateLimitConfig
	Storage     StorageConfig
	Extractor   ExtractorConfig
	Logging     LoggingConfig
	Security    SecurityConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host     string
	Port     int
	RootPath string // API prefix, "" or "/something"
	Debug    bool
	Timeout  int // seconds
}

// AuthConfig holds API key authentication configuration
type AuthConfig struct {
	Enabled bool
	APIKeys []APIKey
}

// APIKey maps a secret key to a stable client id
type APIKey struct {
	Key      string `yaml:"key"`
	ClientID string `yaml:"client_id"`
	Name     string `yaml:"name"`
}

// RateLimitConfig holds per-client rate limiting configuration
type RateLimitConfig struct {
	Enabled         bool
	Requests        int // Max requests per window per client
	WindowSeconds   int
	CleanupInterval int // Interval in seconds to clean up old entries
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	BaseDir           string
	ScratchTTLSeconds int // Age after which leftover scratch dirs are removed
	CleanupInterval   int // seconds
}

// ExtractorConfig holds the extraction worker configuration
type ExtractorConfig struct {
	URL string // empty means the extractor is unavailable
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string
	FilePath string
}

// SecurityConfig holds request validation configuration
type SecurityConfig struct {
	AllowedDomains []string // empty allows any host
}

// AuthEnabled reports whether API key authentication is enforced
func (c *Config) AuthEnabled() bool { return c.Auth.Enabled }

// RateLimitEnabled reports whether rate limiting is enforced
func (c *Config) RateLimitEnabled() bool { return c.RateLimit.Enabled }

// Port returns the listen port
func (c *Config) Port() int { return c.Server.Port }

// Debug reports whether debug mode is on
func (c *Config) Debug() bool { return c.Server.Debug }

// Validate checks the invariants every profile must satisfy
func (c *Config) Validate() error {
	var errs []error

	switch c.Environment {
	case EnvironmentProduction, EnvironmentSimple:
	default:
		errs = append(errs, fmt.Errorf("unknown environment %q", c.Environment))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range [1,65535]", c.Server.Port))
	}
	if c.RateLimit.Requests <= 0 {
		errs = append(errs, fmt.Errorf("rate limit requests must be positive, got %d", c.RateLimit.Requests))
	}
	if c.RateLimit.WindowSeconds <= 0 {
		errs = append(errs, fmt.Errorf("rate limit window must be positive, got %d", c.RateLimit.WindowSeconds))
	}
	if c.Auth.Enabled {
		if len(c.Auth.APIKeys) == 0 {
			errs = append(errs, errors.New("auth is enabled but no API keys are configured"))
		}
		for i, k := range c.Auth.APIKeys {
			if k.Key == "" || k.ClientID == "" {
				errs = append(errs, fmt.Errorf("api key #%d needs both key and client_id", i))
			}
		}
	}

	return errors.Join(errs...)
}
