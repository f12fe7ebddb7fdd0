package http

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/grantsync/internal/config"
	"github.com/turtacn/grantsync/internal/testutil"
	"github.com/turtacn/grantsync/pkg/errors"
)

func TestNewServer(t *testing.T) {
	s := NewServer(config.ServerConfig{Port: 8081, ReadTimeout: time.Second}, http.NotFoundHandler(), nil)
	assert.Equal(t, ":8081", s.srv.Addr)
	assert.Equal(t, time.Second, s.srv.ReadTimeout)
	assert.Equal(t, config.DefaultShutdownTimeout, s.shutdownTimeout)
	assert.NotNil(t, s.Handler())
	assert.Nil(t, s.Addr())
}

func TestServer_StartStop(t *testing.T) {
	log := testutil.NewMockLogger()
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	s := NewServer(config.ServerConfig{Port: 0, ShutdownTimeout: time.Second}, h, log)

	done := make(chan error, 1)
	go func() { done <- s.Start() }()

	require.Eventually(t, func() bool { return s.Addr() != nil }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + s.Addr().String())
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	require.NoError(t, s.Stop(context.Background()))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.True(t, log.HasMessage("info", "HTTP server stopped"))
}

func TestServer_StartListenFailure(t *testing.T) {
	s := NewServer(config.ServerConfig{Port: -1}, http.NotFoundHandler(), nil)
	err := s.Start()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
}
