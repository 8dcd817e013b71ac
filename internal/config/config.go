// Package config provides centralized configuration management for the
// pipeline commands. Runtime settings come from environment variables with
// sensible defaults and are validated on startup to fail fast on
// misconfiguration. What to process is described by the YAML pipeline file
// named by PIPELINE_CONFIG (see pipeline.go).
package config

import "time"

// Config holds all runtime configuration.
// All settings can be configured via environment variables.
type Config struct {
	Logging  LoggingConfig
	Pipeline PipelineFileConfig
	Output   OutputConfig
	Fetch    FetchConfig
	Database DatabaseConfig
	S3       S3Config
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// PipelineFileConfig locates the pipeline description.
type PipelineFileConfig struct {
	// Path of the YAML pipeline file (default: config.yaml)
	Path string `env:"PIPELINE_CONFIG" default:"config.yaml"`
}

// OutputConfig holds output settings.
type OutputConfig struct {
	// Dir is the processed-data directory receiving CSV outputs (default: data/processed)
	Dir string `env:"OUTPUT_DIR" default:"data/processed"`
}

// FetchConfig holds download settings.
type FetchConfig struct {
	// Timeout is the per-request HTTP timeout (default: 2m)
	Timeout time.Duration `env:"HTTP_TIMEOUT" default:"2m"`

	// RateLimitRPS caps requests per second; 0 disables the limit (default: 0)
	RateLimitRPS float64 `env:"FETCH_RATE_LIMIT_RPS" default:"0"`

	// CacheSize is the number of response bodies kept in memory (default: 32)
	CacheSize int `env:"FETCH_CACHE_SIZE" default:"32"`

	// MaxBytes is the maximum accepted response size (default: 1GB)
	MaxBytes int64 `env:"FETCH_MAX_BYTES" default:"1073741824"`

	// UserAgent is sent with every HTTP request
	UserAgent string `env:"FETCH_USER_AGENT" default:"opendata-normalizer/1.0"`
}

// DatabaseConfig holds the optional database sinks.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string; empty disables the Postgres sink
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// SQLitePath is the SQLite output file; empty disables the SQLite sink
	SQLitePath string `env:"SQLITE_PATH"`
}

// S3Config holds the optional object store, used for s3:// inputs and as an
// output destination.
type S3Config struct {
	// Endpoint is host[:port] of the S3-compatible service; empty disables the store
	Endpoint string `env:"S3_ENDPOINT"`

	// Region of the bucket (default: us-east-1)
	Region string `env:"S3_REGION" default:"us-east-1"`

	AccessKey string `env:"S3_ACCESS_KEY"`
	SecretKey string `env:"S3_SECRET_KEY"`

	// Bucket receives the uploaded outputs
	Bucket string `env:"S3_BUCKET"`

	// UseSSL selects https (default: true)
	UseSSL bool `env:"S3_USE_SSL" default:"true"`

	// Prefix is prepended to uploaded object keys (default: exports)
	Prefix string `env:"S3_PREFIX" default:"exports"`

	// Upload enables the object sink when the store is configured (default: true)
	Upload bool `env:"S3_UPLOAD" default:"true"`
}

// Enabled reports whether an object store is configured.
func (c *S3Config) Enabled() bool {
	return c.Endpoint != ""
}
