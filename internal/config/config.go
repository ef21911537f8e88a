// Package config provides centralized configuration management for bountycatch.
// It loads configuration from an optional config file and environment variables
// with sensible defaults, and validates all settings on startup to fail fast on
// misconfiguration.
package config

import (
	"net"
	"net/url"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Every key can be set in the config file or overridden via environment variables.
type Config struct {
	Database DatabaseConfig `mapstructure:"postgresql"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Server   ServerConfig   `mapstructure:"server"`

	// Source is the config file that was read (empty when running on defaults).
	Source string `mapstructure:"-"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	// Host is the database server host (default: localhost, env: PGHOST)
	Host string `mapstructure:"host" validate:"required"`

	// Port is the database server port (default: 5432, env: PGPORT)
	Port int `mapstructure:"port" validate:"gte=1,lte=65535"`

	// Name is the database name (default: bountycatch, env: PGDATABASE)
	Name string `mapstructure:"database" validate:"required"`

	// User is the login role (default: postgres, env: PGUSER)
	User string `mapstructure:"user" validate:"required"`

	// Password for User (default: empty, env: PGPASSWORD)
	Password string `mapstructure:"password"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `mapstructure:"max_connections" validate:"gte=1,gtefield=MinConns"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `mapstructure:"min_connections" validate:"gte=0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime" validate:"gt=0"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time" validate:"gt=0"`
}

// IngestConfig holds the tuning knobs of the add/remove pipelines.
type IngestConfig struct {
	// BulkThreshold is the candidate count at which add switches from
	// row inserts to COPY plus rebuild (default: 100000)
	BulkThreshold int `mapstructure:"bulk_threshold" validate:"gte=1"`

	// InsertBatchSize is the number of rows per INSERT statement (default: 10000)
	InsertBatchSize int `mapstructure:"insert_batch_size" validate:"gte=1,lte=65535"`

	// CopyChunkSize is the number of rows per COPY round-trip (default: 5000000)
	CopyChunkSize int `mapstructure:"copy_chunk_size" validate:"gte=1"`

	// RemoveBatchSize is the number of values per DELETE ... IN statement (default: 10000)
	RemoveBatchSize int `mapstructure:"remove_batch_size" validate:"gte=1,lte=65535"`

	// ReadBufferSize is the input read buffer in bytes (default: 1MiB, minimum 512KiB)
	ReadBufferSize int `mapstructure:"read_buffer_size" validate:"gte=524288"`

	// WorkMem is applied to the session during bulk loads (default: 256MB)
	WorkMem string `mapstructure:"work_mem" validate:"required,pgsize"`

	// MaintenanceWorkMem is applied to the session during index rebuilds (default: 512MB)
	MaintenanceWorkMem string `mapstructure:"maintenance_work_mem" validate:"required,pgsize"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`

	// Format is the log format: text or json (default: text)
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// ServerConfig holds settings for the read-only HTTP API.
type ServerConfig struct {
	// Addr is the listen address (default: 127.0.0.1:8080)
	Addr string `mapstructure:"addr" validate:"required,hostname_port"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `mapstructure:"read_timeout" validate:"gte=0"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 10s)
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`

	// APIKeys, when non-empty, are required in the X-API-Key header of /api requests
	APIKeys []string `mapstructure:"api_keys"`

	// TrustedProxies lists CIDRs whose X-Real-IP / X-Forwarded-For headers are honoured
	TrustedProxies []string `mapstructure:"trusted_proxies" validate:"dive,cidr|ip"`
}

// ConnString returns the PostgreSQL connection URL for the configured database.
func (c *DatabaseConfig) ConnString() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else {
		u.User = url.User(c.User)
	}
	return u.String()
}
