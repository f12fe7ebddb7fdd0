package cli

import (
	"context"

	"github.com/turtacn/grantsync/internal/config"
	"github.com/turtacn/grantsync/internal/domain/patent"
	"github.com/turtacn/grantsync/internal/infrastructure/database/postgres"
	"github.com/turtacn/grantsync/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/grantsync/internal/infrastructure/database/redis"
	"github.com/turtacn/grantsync/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/grantsync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/grantsync/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/grantsync/internal/infrastructure/storage/minio"
	"github.com/turtacn/grantsync/internal/infrastructure/store/memory"
	"github.com/turtacn/grantsync/internal/interfaces/http/handlers"
	"github.com/turtacn/grantsync/pkg/errors"
)

// Backend is an opened store together with the readiness checks of the
// connections behind it.  Close releases every one of those connections.
type Backend struct {
	Store    patent.Store
	Checkers []handlers.HealthChecker
	Close    func()
}

// StoreFactory opens the configured Backend.
type StoreFactory func(ctx context.Context, cfg *config.Config, log logging.Logger, m *prometheus.AppMetrics) (*Backend, error)

// OpenStore builds the backend selected by cfg.Store.Driver, instruments it
// and, when Kafka is enabled, publishes every saved batch.
func OpenStore(ctx context.Context, cfg *config.Config, log logging.Logger, m *prometheus.AppMetrics) (*Backend, error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	var checkers []handlers.HealthChecker

	var store patent.Store
	switch cfg.Store.Driver {
	case config.DriverMemory:
		store = memory.NewStore()

	case config.DriverPostgres:
		conn, err := postgres.NewConnection(ctx, postgresConfig(cfg.Database), log)
		if err != nil {
			return nil, err
		}
		closers = append(closers, conn.Close)
		checkers = append(checkers, handlers.CheckFunc("postgres_pool", conn.HealthCheck))

		repo := repositories.NewPatentStore(conn.Pool(), log)
		if cfg.Database.AutoCreateSchema {
			if err := repo.EnsureSchema(ctx); err != nil {
				cleanup()
				return nil, err
			}
		}
		store = repo

	case config.DriverRedis:
		client, err := redis.NewClient(ctx, redisConfig(cfg.Redis), log)
		if err != nil {
			return nil, err
		}
		closers = append(closers, func() { _ = client.Close() })
		checkers = append(checkers, handlers.CheckFunc("redis_ping", client.Ping))
		store = redis.NewPatentStore(client.GetUnderlyingClient(), client.KeyPrefix(), log)

	default:
		return nil, errors.New(errors.ErrCodeValidation, "unknown store driver").WithDetail(cfg.Store.Driver)
	}

	store = prometheus.NewInstrumentedStore(store, cfg.Store.Driver, m)

	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(producerConfig(cfg.Kafka), log)
		if err != nil {
			cleanup()
			return nil, err
		}
		closers = append(closers, func() { _ = producer.Close() })
		store = kafka.NewPublishingStore(store, producer, cfg.Kafka.Topic, log)
	}

	log.Info("Store opened",
		logging.String("driver", cfg.Store.Driver),
		logging.Bool("publishing", cfg.Kafka.Enabled))
	checkers = append([]handlers.HealthChecker{handlers.StoreChecker(cfg.Store.Driver, store)}, checkers...)
	return &Backend{Store: store, Checkers: checkers, Close: cleanup}, nil
}

// OpenArchive connects to the page archive, or returns nil when archiving is
// disabled.
func OpenArchive(ctx context.Context, cfg config.ArchiveConfig, log logging.Logger) (*minio.PageArchive, func(), error) {
	if !cfg.Enabled {
		return nil, func() {}, nil
	}
	client, err := minio.NewMinIOClient(ctx, &minio.MinIOConfig{
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKey,
		SecretAccessKey: cfg.SecretKey,
		UseSSL:          cfg.UseSSL,
		Region:          cfg.Region,
		Bucket:          cfg.Bucket,
	}, log)
	if err != nil {
		return nil, nil, err
	}
	return minio.NewPageArchive(client, log), func() { _ = client.Close() }, nil
}

// NewMetrics builds the collector and the application metrics on it.
func NewMetrics(cfg config.MetricsConfig, log logging.Logger) (prometheus.MetricsCollector, *prometheus.AppMetrics, error) {
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            cfg.Namespace,
		Subsystem:            cfg.Subsystem,
		EnableProcessMetrics: cfg.EnableProcessMetrics,
		EnableGoMetrics:      cfg.EnableGoMetrics,
	}, log)
	if err != nil {
		return nil, nil, err
	}
	return collector, prometheus.NewAppMetrics(collector), nil
}

func postgresConfig(c config.DatabaseConfig) postgres.PostgresConfig {
	return postgres.PostgresConfig{
		Host:            c.Host,
		Port:            c.Port,
		Database:        c.DBName,
		Username:        c.User,
		Password:        c.Password,
		SSLMode:         c.SSLMode,
		MaxConns:        int32(c.MaxConns),
		MinConns:        int32(c.MinConns),
		ConnMaxLifetime: c.ConnMaxLifetime,
		ConnectTimeout:  c.ConnectTimeout,
	}
}

func redisConfig(c config.RedisConfig) *redis.RedisConfig {
	return &redis.RedisConfig{
		Mode:          c.Mode,
		Addr:          c.Addr,
		MasterName:    c.MasterName,
		SentinelAddrs: c.SentinelAddrs,
		Username:      c.Username,
		Password:      c.Password,
		DB:            c.DB,
		KeyPrefix:     c.KeyPrefix,
		PoolSize:      c.PoolSize,
		DialTimeout:   c.DialTimeout,
		MaxRetries:    c.MaxRetries,
		TLSEnabled:    c.TLSEnabled,
		TLSCAFile:     c.TLSCAFile,
	}
}

func producerConfig(c config.KafkaConfig) kafka.ProducerConfig {
	return kafka.ProducerConfig{
		Brokers:          c.Brokers,
		Acks:             c.Acks,
		MaxRetries:       c.MaxRetries,
		BatchSize:        c.BatchSize,
		BatchTimeout:     c.BatchTimeout,
		MaxMessageBytes:  c.MaxMessageBytes,
		CompressionCodec: c.Compression,
		WriteTimeout:     c.WriteTimeout,
		SASLMechanism:    c.SASLMechanism,
		SASLUsername:     c.SASLUsername,
		SASLPassword:     c.SASLPassword,
		TLSEnabled:       c.TLSEnabled,
		TLSCAPath:        c.TLSCAPath,
	}
}
