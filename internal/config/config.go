// Package config provides server configuration loaded from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const logPrefix = "config:LoadConfig"

// Host backends selectable through HOST_BACKEND.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds command-registry configuration.
type Config struct {
	// COMMS: connect to standalone NATS at COMMSURL.
	COMMSURL  string `envconfig:"COMMS_URL" default:"nats://127.0.0.1:4222"`
	COMMSName string `envconfig:"SERVICE_NAME" default:"command-registry"`

	// Subject overrides (empty = defaults from commsutil / bootstrap)
	RegistrySubject string `envconfig:"REGISTRY_SUBJECT"`
	EventSubject    string `envconfig:"REGISTRY_EVENT_SUBJECT"`

	RequestTimeout time.Duration `envconfig:"REGISTRY_REQUEST_TIMEOUT" default:"25s"`

	BootstrapFile string `envconfig:"REGISTRY_BOOTSTRAP_FILE"`

	// Host state backend: memory, redis or postgres.
	HostBackend string `envconfig:"HOST_BACKEND" default:"memory"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix   string `envconfig:"REDIS_PREFIX" default:"command-registry:host:"`

	DatabaseURL   string `envconfig:"DATABASE_URL"`
	RunMigrations bool   `envconfig:"RUN_MIGRATIONS" default:"false"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"migrations"`

	// HTTP endpoints (REGISTRY_HTTP_ADDR preferred, e.g. "0.0.0.0:8080")
	HTTPAddr           string        `envconfig:"REGISTRY_HTTP_ADDR"`
	HTTPPort           int           `envconfig:"HTTP_PORT" default:"8080"`
	HealthCheckTimeout time.Duration `envconfig:"HEALTH_CHECK_TIMEOUT" default:"5s"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	c.HostBackend = strings.ToLower(strings.TrimSpace(c.HostBackend))
	return &c, nil
}

// ValidateForServe checks required config when running the registry server.
func (c *Config) ValidateForServe() error {
	switch c.HostBackend {
	case BackendMemory, BackendRedis:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%s - DATABASE_URL is required for the postgres host backend", logPrefix)
		}
	default:
		return fmt.Errorf("%s - unknown HOST_BACKEND %q", logPrefix, c.HostBackend)
	}
	if c.HostBackend == BackendRedis && c.RedisAddr == "" {
		return fmt.Errorf("%s - REDIS_ADDR is required for the redis host backend", logPrefix)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%s - REGISTRY_REQUEST_TIMEOUT must be positive", logPrefix)
	}
	if c.HealthCheckTimeout <= 0 {
		return fmt.Errorf("%s - HEALTH_CHECK_TIMEOUT must be positive", logPrefix)
	}
	return nil
}

// ValidateForDB checks required config when running DB-dependent commands (migrate, clear).
func (c *Config) ValidateForDB() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s - DATABASE_URL is required", logPrefix)
	}
	return nil
}

// HTTPListenAddr returns REGISTRY_HTTP_ADDR, or ":HTTP_PORT" when unset.
func (c *Config) HTTPListenAddr() string {
	if c.HTTPAddr != "" {
		return c.HTTPAddr
	}
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// SlogLevel maps LOG_LEVEL onto a slog level. Unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
