package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/grantsync/internal/testutil"
	pkgerrors "github.com/turtacn/grantsync/pkg/errors"
)

// mockKafkaWriter
type mockKafkaWriter struct {
	writeFunc func(ctx context.Context, msgs ...kafka.Message) error
	closeFunc func() error
}

func (m *mockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.writeFunc != nil {
		return m.writeFunc(ctx, msgs...)
	}
	return nil
}

func (m *mockKafkaWriter) Close() error {
	if m.closeFunc != nil {
		return m.closeFunc()
	}
	return nil
}

func newTestProducerConfig() ProducerConfig {
	return ProducerConfig{
		Brokers:         []string{"localhost:9092"},
		MaxMessageBytes: 1024,
	}
}

func newTestProducer(w WriterInterface) *Producer {
	return newProducerWithWriter(w, newTestProducerConfig(), testutil.NewMockLogger())
}

func TestValidateProducerConfig(t *testing.T) {
	assert.NoError(t, ValidateProducerConfig(newTestProducerConfig()))

	cfg := newTestProducerConfig()
	cfg.Brokers = nil
	assert.True(t, pkgerrors.IsCode(ValidateProducerConfig(cfg), pkgerrors.ErrCodeValidation))

	cfg = newTestProducerConfig()
	cfg.MaxRetries = -1
	assert.Error(t, ValidateProducerConfig(cfg))
}

func TestNewProducer(t *testing.T) {
	p, err := NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}, CompressionCodec: "zstd"}, nil)
	require.NoError(t, err)
	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
	assert.Equal(t, kafka.Zstd, w.Compression)
	assert.Equal(t, 4, w.MaxAttempts)
	assert.NoError(t, p.Close())

	_, err = NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}, SASLMechanism: "GSSAPI"}, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeValidation))
}

func TestPublish_Success(t *testing.T) {
	var captured []kafka.Message
	w := &mockKafkaWriter{
		writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			captured = msgs
			return nil
		},
	}
	p := newTestProducer(w)

	at := time.Date(2017, 1, 3, 12, 0, 0, 0, time.UTC)
	err := p.Publish(context.Background(),
		Message{Topic: "test", Key: []byte("k1"), Value: []byte("v1"), Headers: map[string]string{"h": "x"}, Time: at},
		Message{Topic: "test", Key: []byte("k2"), Value: []byte("v22")},
	)
	require.NoError(t, err)
	require.Len(t, captured, 2)
	assert.Equal(t, "test", captured[0].Topic)
	assert.Equal(t, "k1", string(captured[0].Key))
	assert.Equal(t, "v1", string(captured[0].Value))
	assert.Equal(t, []kafka.Header{{Key: "h", Value: []byte("x")}}, captured[0].Headers)
	assert.Equal(t, at, captured[0].Time)
	assert.False(t, captured[1].Time.IsZero())
	assert.Equal(t, int64(2), p.Sent())
	assert.Equal(t, int64(5), p.metrics.BytesSent.Load())
}

func TestPublish_Empty(t *testing.T) {
	calls := 0
	p := newTestProducer(&mockKafkaWriter{writeFunc: func(context.Context, ...kafka.Message) error {
		calls++
		return nil
	}})
	require.NoError(t, p.Publish(context.Background()))
	assert.Zero(t, calls)
}

func TestPublish_Validation(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{})

	err := p.Publish(context.Background(), Message{Value: []byte("v")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeValidation))

	err = p.Publish(context.Background(), Message{Topic: "t", Value: make([]byte, 2048)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeValidation))
}

func TestPublish_Failure(t *testing.T) {
	w := &mockKafkaWriter{
		writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			return errors.New("write failed")
		},
	}
	p := newTestProducer(w)

	err := p.Publish(context.Background(), Message{Topic: "test", Key: []byte("k"), Value: []byte("v")})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeMessaging))
	assert.Equal(t, int64(1), p.metrics.MessagesFailed.Load())
}

func TestClose(t *testing.T) {
	closed := 0
	p := newTestProducer(&mockKafkaWriter{
		closeFunc: func() error {
			closed++
			return nil
		},
	})
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, closed)

	err := p.Publish(context.Background(), Message{Topic: "t", Value: []byte("v")})
	assert.Equal(t, ErrProducerClosed, err)
}
