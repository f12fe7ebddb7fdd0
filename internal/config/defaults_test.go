package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/grantsync/internal/config"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	assert.Equal(t, config.DefaultUSPTOBaseURL, cfg.USPTO.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.USPTO.Timeout)
	assert.Equal(t, 0, cfg.USPTO.RowStart)
	assert.Equal(t, 100, cfg.USPTO.RowCount)
	assert.Equal(t, 1000, cfg.Fetch.FlushThreshold)
	assert.Equal(t, config.DriverMemory, cfg.Store.Driver)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "standalone", cfg.Redis.Mode)
	assert.Equal(t, "grantsync:", cfg.Redis.KeyPrefix)
	assert.Equal(t, "patent.grants.ingested", cfg.Kafka.Topic)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "grantsync", cfg.Metrics.Namespace)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Database.AutoCreateSchema)
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{}
	cfg.USPTO.RowCount = 5
	cfg.Fetch.FlushThreshold = 20
	cfg.Store.Driver = config.DriverPostgres
	cfg.Kafka.Brokers = []string{"kafka-1:9092", "kafka-2:9092"}
	cfg.Log.Format = "console"

	config.ApplyDefaults(cfg)

	assert.Equal(t, 5, cfg.USPTO.RowCount)
	assert.Equal(t, 20, cfg.Fetch.FlushThreshold)
	assert.Equal(t, config.DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestApplyDefaults_Nil(t *testing.T) {
	t.Parallel()
	assert.NotPanics(t, func() { config.ApplyDefaults(nil) })
}

func TestDefault(t *testing.T) {
	t.Parallel()
	assert.True(t, config.Default().Database.AutoCreateSchema)
}
