// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL). DatabaseURL, when set, overrides the discrete fields.
	DatabaseURL string `env:"DATABASE_URL"`
	DB          DB     `envPrefix:"DB_"`

	// Change stream (Redis). Forwarding is disabled when RedisURL is empty.
	RedisURL     string `env:"REDIS_URL"`
	ChangeStream string `env:"CHANGE_STREAM" envDefault:"stream:usuarios_changes"`
	ChangeGroup  string `env:"CHANGE_GROUP" envDefault:"change_subscribers"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// DB holds the discrete connection settings of the store.
type DB struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     int    `env:"PORT" envDefault:"5432"`
	Name     string `env:"NAME" envDefault:"postgres"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD"`
	SSL      bool   `env:"SSL" envDefault:"false"`

	// Pool limits
	MaxConns         int32         `env:"MAX_CONNS" envDefault:"10"`
	MinConns         int32         `env:"MIN_CONNS" envDefault:"0"`
	AcquireTimeout   time.Duration `env:"ACQUIRE_TIMEOUT" envDefault:"5s"`
	StatementTimeout time.Duration `env:"STATEMENT_TIMEOUT" envDefault:"30s"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// ChangeForwardingEnabled reports whether a Redis URL was configured.
func (c *Config) ChangeForwardingEnabled() bool {
	return c.RedisURL != ""
}

// ConnString returns DatabaseURL when set, otherwise a URL assembled from
// the DB_* fields. SSL maps to sslmode=require, its absence to disable.
func (c *Config) ConnString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.DB.Host, strconv.Itoa(c.DB.Port)),
		Path:   "/" + c.DB.Name,
	}
	if c.DB.Password != "" {
		u.User = url.UserPassword(c.DB.User, c.DB.Password)
	} else {
		u.User = url.User(c.DB.User)
	}

	sslMode := "disable"
	if c.DB.SSL {
		sslMode = "require"
	}
	u.RawQuery = url.Values{"sslmode": []string{sslMode}}.Encode()

	return u.String()
}

// Load parses environment variables and returns a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" && c.DB.Host == "" {
		return fmt.Errorf("invalid config: DATABASE_URL or DB_HOST is required")
	}
	if c.DB.MaxConns <= 0 {
		return fmt.Errorf("invalid config: DB_MAX_CONNS must be positive, got %d", c.DB.MaxConns)
	}
	if c.DB.MinConns < 0 || c.DB.MinConns > c.DB.MaxConns {
		return fmt.Errorf("invalid config: DB_MIN_CONNS must be between 0 and %d, got %d", c.DB.MaxConns, c.DB.MinConns)
	}
	return nil
}
