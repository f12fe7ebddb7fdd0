package redis

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/grantsync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/grantsync/pkg/errors"
)

func TestNewClient_InvalidMode(t *testing.T) {
	client, err := NewClient(context.Background(), &RedisConfig{Mode: "cluster"}, logging.NewNopLogger())
	require.Error(t, err)
	assert.Nil(t, client)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestNewClient_ConnectionFailed(t *testing.T) {
	cfg := &RedisConfig{
		Addr:        "127.0.0.1:1",
		DialTimeout: 500 * time.Millisecond,
		MaxRetries:  -1,
	}

	client, err := NewClient(context.Background(), cfg, logging.NewNopLogger())
	require.Error(t, err)
	assert.Nil(t, client)
	assert.True(t, errors.IsConnection(err))
}

func TestApplyDefaults(t *testing.T) {
	cfg := &RedisConfig{}
	applyDefaults(cfg)

	assert.Equal(t, "standalone", cfg.Mode)
	assert.Positive(t, cfg.PoolSize)
	assert.Equal(t, 5*time.Second, cfg.DialTimeout)
	assert.Equal(t, 3, cfg.MaxRetries)
}

func TestBuildTLSConfig(t *testing.T) {
	tlsCfg, err := buildTLSConfig(&RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, tlsCfg)

	tlsCfg, err = buildTLSConfig(&RedisConfig{TLSEnabled: true})
	require.NoError(t, err)
	assert.NotNil(t, tlsCfg)
	assert.Nil(t, tlsCfg.RootCAs)

	_, err = buildTLSConfig(&RedisConfig{TLSEnabled: true, TLSCAFile: "/nonexistent/ca.pem"})
	assert.Error(t, err)

	garbage := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(garbage, []byte("not a certificate"), 0o600))
	_, err = buildTLSConfig(&RedisConfig{TLSEnabled: true, TLSCAFile: garbage})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestClient_PingAndClose(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := &Client{rdb: db, config: &RedisConfig{KeyPrefix: "gs:"}, logger: logging.NewNopLogger()}

	mock.ExpectPing().SetVal("PONG")
	require.NoError(t, client.Ping(context.Background()))
	assert.Equal(t, "gs:", client.KeyPrefix())

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	assert.Equal(t, ErrClientClosed, client.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
