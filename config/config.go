// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Schemas  SchemasConfig  `yaml:"schemas"`
	Resolver ResolverConfig `yaml:"resolver"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// SchemasConfig configures schema storage and discovery.
type SchemasConfig struct {
	// Dir is the storage root: {dir}/{family}/v{x}.{y}.{z}.json.
	Dir string `yaml:"dir"`

	// BaseURL seeds identifier normalization before the first request
	// overrides it with the request host.
	BaseURL string `yaml:"base_url"`

	// Watch enables fsnotify invalidation when the storage tree changes.
	Watch bool `yaml:"watch"`
}

// ResolverConfig configures reference resolution.
type ResolverConfig struct {
	// MaxDepth bounds nested $ref expansion on one branch.
	MaxDepth int `yaml:"max_depth"`

	// StripPrefixes are internal host prefixes removed from resolved
	// output, e.g. "http://testserver/schemas/".
	StripPrefixes []string `yaml:"strip_prefixes"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(&cfg)

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
// This is useful for Docker deployments where no config file is needed.
//
// Environment variables:
//
//	SCHEMAGATE_SCHEMAS_DIR     - Schema storage root (default: schemas)
//	SCHEMAGATE_BASE_URL        - Base URL for schema identifiers
//	SCHEMAGATE_SERVER_HOST     - Server host (default: 0.0.0.0)
//	SCHEMAGATE_SERVER_PORT     - Server port (default: 8000)
//	SCHEMAGATE_SCHEMAS_WATCH   - Watch storage for changes (default: false)
//	SCHEMAGATE_LOG_LEVEL       - Log level: debug, info, warn, error (default: info)
//	SCHEMAGATE_LOG_FORMAT      - Log format: json or console (default: json)
//	SCHEMAGATE_METRICS_ENABLED - Enable /metrics endpoint (default: false)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment
// variables. This is the recommended method for Docker deployments.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	// Env-only is always enough to run; every setting has a default.
	return LoadFromEnv()
}

// HasEnvConfig returns true if essential environment variables are set.
func HasEnvConfig() bool {
	return os.Getenv("SCHEMAGATE_SCHEMAS_DIR") != ""
}

// applyEnvOverrides applies SCHEMAGATE_* environment variables to the
// config. Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := os.Getenv("SCHEMAGATE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SCHEMAGATE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SCHEMAGATE_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("SCHEMAGATE_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	// Schema storage configuration
	if v := os.Getenv("SCHEMAGATE_SCHEMAS_DIR"); v != "" {
		cfg.Schemas.Dir = v
	}
	if v := os.Getenv("SCHEMAGATE_BASE_URL"); v != "" {
		cfg.Schemas.BaseURL = v
	}
	if v := os.Getenv("SCHEMAGATE_SCHEMAS_WATCH"); v != "" {
		cfg.Schemas.Watch = parseBool(v)
	}

	// Resolver configuration
	if v := os.Getenv("SCHEMAGATE_RESOLVER_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Resolver.MaxDepth = n
		}
	}

	// Logging configuration
	if v := os.Getenv("SCHEMAGATE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SCHEMAGATE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("SCHEMAGATE_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("SCHEMAGATE_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Schemas.Dir == "" {
		cfg.Schemas.Dir = "schemas"
	}
	if cfg.Schemas.BaseURL == "" {
		cfg.Schemas.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}

	if cfg.Resolver.MaxDepth == 0 {
		cfg.Resolver.MaxDepth = 64
	}
	if cfg.Resolver.StripPrefixes == nil {
		cfg.Resolver.StripPrefixes = []string{"http://testserver/schemas/"}
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	if cfg.Schemas.Dir == "" {
		return fmt.Errorf("schemas.dir is required")
	}

	if cfg.Resolver.MaxDepth < 1 {
		return fmt.Errorf("resolver.max_depth must be positive, got %d", cfg.Resolver.MaxDepth)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error, got %q", cfg.Logging.Level)
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if !strings.HasPrefix(cfg.Schemas.BaseURL, "http") {
		return fmt.Errorf("schemas.base_url must be an absolute http(s) URL, got %q", cfg.Schemas.BaseURL)
	}

	return nil
}
