// Package config defines grantsync's configuration structures.  No I/O or
// parsing logic lives here, only plain data types and validation.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/turtacn/grantsync/pkg/errors"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// USPTOConfig holds grants API parameters.
type USPTOConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	CertFilePath string        `mapstructure:"cert_file_path"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RowStart     int           `mapstructure:"row_start"`
	RowCount     int           `mapstructure:"row_count"`
	UserAgent    string        `mapstructure:"user_agent"`
}

// FetchConfig holds fetch-loop tunables.
type FetchConfig struct {
	FlushThreshold int `mapstructure:"flush_threshold"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // "memory" | "postgres" | "redis"
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	DBName           string        `mapstructure:"db_name"`
	SSLMode          string        `mapstructure:"ssl_mode"`
	MaxConns         int           `mapstructure:"max_conns"`
	MinConns         int           `mapstructure:"min_conns"`
	ConnMaxLifetime  time.Duration `mapstructure:"conn_max_lifetime"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout"`
	AutoCreateSchema bool          `mapstructure:"auto_create_schema"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Mode          string        `mapstructure:"mode"` // "standalone" | "sentinel"
	Addr          string        `mapstructure:"addr"`
	MasterName    string        `mapstructure:"master_name"`
	SentinelAddrs []string      `mapstructure:"sentinel_addrs"`
	Username      string        `mapstructure:"username"`
	Password      string        `mapstructure:"password"`
	DB            int           `mapstructure:"db"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
	PoolSize      int           `mapstructure:"pool_size"`
	DialTimeout   time.Duration `mapstructure:"dial_timeout"`
	MaxRetries    int           `mapstructure:"max_retries"`
	TLSEnabled    bool          `mapstructure:"tls_enabled"`
	TLSCAFile     string        `mapstructure:"tls_ca_file"`
}

// KafkaConfig holds grant-event publishing parameters.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	Acks         string        `mapstructure:"acks"`        // "all" | "one" | "none"
	Compression  string        `mapstructure:"compression"` // "" | "gzip" | "snappy" | "lz4" | "zstd"
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	MaxRetries      int           `mapstructure:"max_retries"`
	BatchSize       int           `mapstructure:"batch_size"`
	BatchTimeout    time.Duration `mapstructure:"batch_timeout"`
	MaxMessageBytes int           `mapstructure:"max_message_bytes"`

	SASLMechanism string `mapstructure:"sasl_mechanism"` // "" | "PLAIN" | "SCRAM-SHA-256" | "SCRAM-SHA-512"
	SASLUsername  string `mapstructure:"sasl_username"`
	SASLPassword  string `mapstructure:"sasl_password"`
	TLSEnabled    bool   `mapstructure:"tls_enabled"`
	TLSCAPath     string `mapstructure:"tls_ca_path"`
}

// ArchiveConfig holds raw-page archive (MinIO / S3) parameters.
type ArchiveConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// MetricsConfig holds Prometheus naming.
type MetricsConfig struct {
	Namespace            string `mapstructure:"namespace"`
	Subsystem            string `mapstructure:"subsystem"`
	EnableProcessMetrics bool   `mapstructure:"enable_process_metrics"`
	EnableGoMetrics      bool   `mapstructure:"enable_go_metrics"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format string `mapstructure:"format"` // "json" | "console"
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.
type Config struct {
	USPTO    USPTOConfig    `mapstructure:"uspto"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Store    StoreConfig    `mapstructure:"store"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Server   ServerConfig   `mapstructure:"server"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate checks the fully-populated Config and returns the first problem
// as an ErrCodeValidation error.  Sections for disabled backends are not
// checked.
func (c *Config) Validate() error {
	// USPTO
	if u, err := url.Parse(c.USPTO.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return invalid("uspto.base_url %q must be an http(s) url", c.USPTO.BaseURL)
	}
	if c.USPTO.Timeout <= 0 {
		return invalid("uspto.timeout must be positive, got %s", c.USPTO.Timeout)
	}
	if c.USPTO.RowStart < 0 {
		return invalid("uspto.row_start must be >= 0, got %d", c.USPTO.RowStart)
	}
	if c.USPTO.RowCount < 1 {
		return invalid("uspto.row_count must be >= 1, got %d", c.USPTO.RowCount)
	}

	// Fetch
	if c.Fetch.FlushThreshold < 1 {
		return invalid("fetch.flush_threshold must be >= 1, got %d", c.Fetch.FlushThreshold)
	}

	// Store
	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if err := c.Database.validate(); err != nil {
			return err
		}
	case DriverRedis:
		if err := c.Redis.validate(); err != nil {
			return err
		}
	default:
		return invalid("store.driver %q is invalid; expected memory|postgres|redis", c.Store.Driver)
	}

	// Kafka
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return invalid("kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.Topic == "" {
			return invalid("kafka.topic is required")
		}
		if c.Kafka.MaxRetries < 0 {
			return invalid("kafka.max_retries must be >= 0, got %d", c.Kafka.MaxRetries)
		}
		switch c.Kafka.SASLMechanism {
		case "":
		case "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512":
			if c.Kafka.SASLUsername == "" {
				return invalid("kafka.sasl_username is required with kafka.sasl_mechanism %s", c.Kafka.SASLMechanism)
			}
		default:
			return invalid("kafka.sasl_mechanism %q is invalid; expected PLAIN|SCRAM-SHA-256|SCRAM-SHA-512", c.Kafka.SASLMechanism)
		}
	}

	// Archive
	if c.Archive.Enabled {
		if c.Archive.Endpoint == "" {
			return invalid("archive.endpoint is required")
		}
		if c.Archive.Bucket == "" {
			return invalid("archive.bucket is required")
		}
	}

	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return invalid("server.port %d is out of range [1, 65535]", c.Server.Port)
	}

	// Metrics
	if c.Metrics.Namespace == "" {
		return invalid("metrics.namespace is required")
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return invalid("log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}

func (d DatabaseConfig) validate() error {
	if d.Host == "" {
		return invalid("database.host is required")
	}
	if d.Port < 1 || d.Port > 65535 {
		return invalid("database.port %d is out of range [1, 65535]", d.Port)
	}
	if d.User == "" {
		return invalid("database.user is required")
	}
	if d.DBName == "" {
		return invalid("database.db_name is required")
	}
	if d.MaxConns < 1 {
		return invalid("database.max_conns must be >= 1, got %d", d.MaxConns)
	}
	if d.MinConns < 0 || d.MinConns > d.MaxConns {
		return invalid("database.min_conns must be in [0, max_conns], got %d", d.MinConns)
	}
	return nil
}

func (r RedisConfig) validate() error {
	switch r.Mode {
	case "standalone":
		if r.Addr == "" {
			return invalid("redis.addr is required")
		}
	case "sentinel":
		if r.MasterName == "" || len(r.SentinelAddrs) == 0 {
			return invalid("redis.master_name and redis.sentinel_addrs are required in sentinel mode")
		}
	default:
		return invalid("redis.mode %q is invalid; expected standalone|sentinel", r.Mode)
	}
	if r.DB < 0 {
		return invalid("redis.db must be >= 0, got %d", r.DB)
	}
	if r.TLSCAFile != "" && !r.TLSEnabled {
		return invalid("redis.tls_ca_file is set but redis.tls_enabled is false")
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return errors.New(errors.ErrCodeValidation, "invalid configuration").WithDetail(fmt.Sprintf(format, args...))
}
