package cli

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/grantsync/internal/config"
	"github.com/turtacn/grantsync/internal/domain/patent"
	"github.com/turtacn/grantsync/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/grantsync/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/grantsync/internal/testutil"
	"github.com/turtacn/grantsync/pkg/errors"
)

func testMetrics(t *testing.T) *prometheus.AppMetrics {
	t.Helper()
	_, m, err := NewMetrics(config.MetricsConfig{Namespace: "test"}, nil)
	require.NoError(t, err)
	return m
}

func TestOpenStore_Memory(t *testing.T) {
	cfg := config.Default()
	backend, err := OpenStore(context.Background(), cfg, testutil.NewMockLogger(), testMetrics(t))
	require.NoError(t, err)
	defer backend.Close()
	store := backend.Store

	_, ok := store.(*prometheus.InstrumentedStore)
	assert.True(t, ok)
	require.Len(t, backend.Checkers, 1)
	assert.Equal(t, config.DriverMemory, backend.Checkers[0].Name())
	assert.NoError(t, backend.Checkers[0].Check(context.Background()))

	p := patent.Patent{
		PatentNumber:            "09532496",
		PatentApplicationNumber: "US14585764",
		FilingDate:              patent.MustParseDate("2014-12-30"),
		GrantDate:               patent.MustParseDate("2017-01-03"),
		InventionTitle:          "Dynamic supplemental downforce control system for planter row units",
	}
	require.NoError(t, store.Save(context.Background(), []patent.Patent{p}))
	got, err := store.Load(context.Background(), p.GrantDate, p.GrantDate)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, p.Equal(got[0]))
}

func TestOpenStore_KafkaDecorates(t *testing.T) {
	cfg := config.Default()
	cfg.Kafka.Enabled = true
	cfg.Kafka.Brokers = []string{"localhost:9092"}

	backend, err := OpenStore(context.Background(), cfg, testutil.NewMockLogger(), testMetrics(t))
	require.NoError(t, err)
	defer backend.Close()

	_, ok := backend.Store.(*kafka.PublishingStore)
	assert.True(t, ok)
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = "sqlite"
	_, err := OpenStore(context.Background(), cfg, testutil.NewMockLogger(), testMetrics(t))
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestOpenStore_PostgresUnreachable(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = config.DriverPostgres
	cfg.Database.Host = "127.0.0.1"
	cfg.Database.Port = 1
	cfg.Database.ConnectTimeout = 500 * time.Millisecond

	_, err := OpenStore(context.Background(), cfg, testutil.NewMockLogger(), testMetrics(t))
	require.Error(t, err)
	assert.True(t, errors.IsConnection(err))
}

func TestOpenStore_RedisUnreachable(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = config.DriverRedis
	cfg.Redis.Addr = "127.0.0.1:1"
	cfg.Redis.DialTimeout = 500 * time.Millisecond

	_, err := OpenStore(context.Background(), cfg, testutil.NewMockLogger(), testMetrics(t))
	require.Error(t, err)
	assert.True(t, errors.IsConnection(err))
}

func TestOpenArchive_Disabled(t *testing.T) {
	archive, cleanup, err := OpenArchive(context.Background(), config.ArchiveConfig{}, nil)
	require.NoError(t, err)
	assert.Nil(t, archive)
	cleanup()
}

func TestOpenStore_KafkaRejectsUnknownSASL(t *testing.T) {
	cfg := config.Default()
	cfg.Kafka.Enabled = true
	cfg.Kafka.SASLMechanism = "GSSAPI"

	_, err := OpenStore(context.Background(), cfg, testutil.NewMockLogger(), testMetrics(t))
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestProducerConfig(t *testing.T) {
	cfg := config.Default().Kafka
	cfg.MaxRetries = 5
	cfg.BatchSize = 250
	cfg.BatchTimeout = 50 * time.Millisecond
	cfg.MaxMessageBytes = 2 << 20
	cfg.Compression = "zstd"
	cfg.SASLMechanism = "SCRAM-SHA-512"
	cfg.SASLUsername = "grantsync"
	cfg.SASLPassword = "s3cret"
	cfg.TLSEnabled = true
	cfg.TLSCAPath = "/etc/kafka/ca.pem"

	assert.Equal(t, kafka.ProducerConfig{
		Brokers:          []string{config.DefaultKafkaBroker},
		Acks:             "all",
		MaxRetries:       5,
		BatchSize:        250,
		BatchTimeout:     50 * time.Millisecond,
		MaxMessageBytes:  2 << 20,
		CompressionCodec: "zstd",
		WriteTimeout:     10 * time.Second,
		SASLMechanism:    "SCRAM-SHA-512",
		SASLUsername:     "grantsync",
		SASLPassword:     "s3cret",
		TLSEnabled:       true,
		TLSCAPath:        "/etc/kafka/ca.pem",
	}, producerConfig(cfg))
}

func TestRedisConfig(t *testing.T) {
	cfg := config.Default().Redis
	cfg.Username = "default"
	cfg.PoolSize = 32
	cfg.MaxRetries = 1
	cfg.TLSEnabled = true
	cfg.TLSCAFile = "/etc/redis/ca.pem"

	got := redisConfig(cfg)
	assert.Equal(t, config.DefaultRedisAddr, got.Addr)
	assert.Equal(t, config.DefaultRedisKeyPrefix, got.KeyPrefix)
	assert.Equal(t, "default", got.Username)
	assert.Equal(t, 32, got.PoolSize)
	assert.Equal(t, 1, got.MaxRetries)
	assert.True(t, got.TLSEnabled)
	assert.Equal(t, "/etc/redis/ca.pem", got.TLSCAFile)
}

func TestOpenStore_RedisMissingCAFile(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = config.DriverRedis
	cfg.Redis.TLSEnabled = true
	cfg.Redis.TLSCAFile = filepath.Join(t.TempDir(), "missing.pem")

	_, err := OpenStore(context.Background(), cfg, testutil.NewMockLogger(), testMetrics(t))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation), "got %v", err)
}

func TestNewMetrics_GoMetricsIndependentOfProcess(t *testing.T) {
	scrape := func(c config.MetricsConfig) string {
		collector, _, err := NewMetrics(c, nil)
		require.NoError(t, err)
		w := httptest.NewRecorder()
		collector.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		return w.Body.String()
	}

	out := scrape(config.MetricsConfig{Namespace: "test", EnableGoMetrics: true})
	assert.Contains(t, out, "go_goroutines")
	assert.NotContains(t, out, "test_process_")

	out = scrape(config.MetricsConfig{Namespace: "test", EnableProcessMetrics: true})
	assert.NotContains(t, out, "go_goroutines")
	assert.Contains(t, out, "test_process_")
}

func TestNewMetrics_RequiresNamespace(t *testing.T) {
	_, _, err := NewMetrics(config.MetricsConfig{}, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}
