package prometheus

import (
	"context"

	"github.com/turtacn/grantsync/internal/domain/patent"
)

// InstrumentedStore times every operation of the wrapped store and counts
// the failed ones.
type InstrumentedStore struct {
	inner   patent.Store
	backend string
	metrics *AppMetrics
}

// NewInstrumentedStore wraps inner; backend labels the recorded series.
func NewInstrumentedStore(inner patent.Store, backend string, metrics *AppMetrics) *InstrumentedStore {
	return &InstrumentedStore{inner: inner, backend: backend, metrics: metrics}
}

// track starts timing op; the returned func stops the timer and counts err.
func (s *InstrumentedStore) track(op string) func(error) {
	timer := NewTimer(s.metrics.StoreOperationDuration.WithLabelValues(s.backend, op))
	return func(err error) {
		timer.ObserveDuration()
		if err != nil {
			s.metrics.StoreErrorsTotal.WithLabelValues(s.backend, op).Inc()
		}
	}
}

func (s *InstrumentedStore) Save(ctx context.Context, patents []patent.Patent) error {
	done := s.track("save")
	err := s.inner.Save(ctx, patents)
	done(err)
	return err
}

func (s *InstrumentedStore) Load(ctx context.Context, start, end patent.Date) ([]patent.Patent, error) {
	done := s.track("load")
	out, err := s.inner.Load(ctx, start, end)
	done(err)
	return out, err
}

func (s *InstrumentedStore) Clear(ctx context.Context) error {
	done := s.track("clear")
	err := s.inner.Clear(ctx)
	done(err)
	return err
}

var _ patent.Store = (*InstrumentedStore)(nil)
