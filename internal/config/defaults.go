package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultUSPTOBaseURL   = "https://developer.uspto.gov/ibd-api/v1/application/grants"
	DefaultUSPTOTimeout   = 30 * time.Second
	DefaultUSPTORowCount  = 100
	DefaultUSPTOUserAgent = "grantsync/1.0"

	DefaultFlushThreshold = 1000

	DefaultStoreDriver = DriverMemory

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "grants"
	DefaultDBUser     = "postgres"
	DefaultDBMaxConns = 4

	DefaultRedisMode      = "standalone"
	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "grantsync:"

	DefaultKafkaBroker = "localhost:9092"
	DefaultKafkaTopic  = "patent.grants.ingested"

	DefaultArchiveEndpoint = "localhost:9000"
	DefaultArchiveBucket   = "grantsync-pages"

	DefaultServerPort      = 8080
	DefaultShutdownTimeout = 10 * time.Second

	DefaultMetricsNamespace = "grantsync"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills every zero-value field in cfg with its default.  Fields
// that have already been set are left unchanged so that explicit
// configuration always wins.
//
// Booleans cannot be defaulted here; database.auto_create_schema defaults to
// true through the loader instead.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── USPTO ─────────────────────────────────────────────────────────────────
	if cfg.USPTO.BaseURL == "" {
		cfg.USPTO.BaseURL = DefaultUSPTOBaseURL
	}
	if cfg.USPTO.Timeout == 0 {
		cfg.USPTO.Timeout = DefaultUSPTOTimeout
	}
	if cfg.USPTO.RowCount == 0 {
		cfg.USPTO.RowCount = DefaultUSPTORowCount
	}
	if cfg.USPTO.UserAgent == "" {
		cfg.USPTO.UserAgent = DefaultUSPTOUserAgent
	}

	// ── Fetch ─────────────────────────────────────────────────────────────────
	if cfg.Fetch.FlushThreshold == 0 {
		cfg.Fetch.FlushThreshold = DefaultFlushThreshold
	}

	// ── Store ─────────────────────────────────────────────────────────────────
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = DefaultStoreDriver
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.User == "" {
		cfg.Database.User = DefaultDBUser
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.ConnectTimeout == 0 {
		cfg.Database.ConnectTimeout = 5 * time.Second
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Mode == "" {
		cfg.Redis.Mode = DefaultRedisMode
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}
	if cfg.Kafka.Acks == "" {
		cfg.Kafka.Acks = "all"
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = 10 * time.Second
	}

	// ── Archive ───────────────────────────────────────────────────────────────
	if cfg.Archive.Endpoint == "" {
		cfg.Archive.Endpoint = DefaultArchiveEndpoint
	}
	if cfg.Archive.Bucket == "" {
		cfg.Archive.Bucket = DefaultArchiveBucket
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.Database.AutoCreateSchema = true
	ApplyDefaults(cfg)
	return cfg
}
