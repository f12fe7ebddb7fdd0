package kafka

import (
	"context"
	"time"

	"github.com/turtacn/grantsync/internal/domain/patent"
	"github.com/turtacn/grantsync/internal/infrastructure/monitoring/logging"
)

// publisher is the slice of Producer the store decorator needs.
type publisher interface {
	Publish(ctx context.Context, msgs ...Message) error
}

// PublishingStore decorates a patent.Store and publishes one grant message
// per record after each successful Save.  Messages are sent only once the
// inner store has accepted the batch; a publish failure is returned to the
// caller with the records already persisted.  Duplicates the inner store
// ignored are still published.
type PublishingStore struct {
	inner  patent.Store
	pub    publisher
	topic  string
	logger logging.Logger
	now    func() time.Time
}

// NewPublishingStore wraps inner.  An empty topic selects TopicGrantsIngested.
func NewPublishingStore(inner patent.Store, producer *Producer, topic string, log logging.Logger) *PublishingStore {
	return newPublishingStore(inner, producer, topic, log)
}

func newPublishingStore(inner patent.Store, pub publisher, topic string, log logging.Logger) *PublishingStore {
	if topic == "" {
		topic = TopicGrantsIngested
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &PublishingStore{
		inner:  inner,
		pub:    pub,
		topic:  topic,
		logger: log.Named("publishing_store"),
		now:    time.Now,
	}
}

// Save persists patents through the inner store, then publishes them.
func (s *PublishingStore) Save(ctx context.Context, patents []patent.Patent) error {
	if len(patents) == 0 {
		return nil
	}
	if err := s.inner.Save(ctx, patents); err != nil {
		return err
	}

	at := s.now().UTC()
	msgs := make([]Message, 0, len(patents))
	for i := range patents {
		msg, err := NewGrantMessage(s.topic, patents[i], at)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	if err := s.pub.Publish(ctx, msgs...); err != nil {
		s.logger.Error("failed to publish grants",
			logging.String("topic", s.topic),
			logging.Int("count", len(msgs)),
			logging.Err(err),
		)
		return err
	}
	s.logger.Debug("published grants", logging.String("topic", s.topic), logging.Int("count", len(msgs)))
	return nil
}

// Load delegates to the inner store.
func (s *PublishingStore) Load(ctx context.Context, start, end patent.Date) ([]patent.Patent, error) {
	return s.inner.Load(ctx, start, end)
}

// Clear delegates to the inner store.  Nothing is published.
func (s *PublishingStore) Clear(ctx context.Context) error {
	return s.inner.Clear(ctx)
}

var _ patent.Store = (*PublishingStore)(nil)
