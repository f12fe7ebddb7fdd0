package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/turtacn/grantsync/internal/domain/patent"
)

// MockStore is a testify mock of patent.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Save(ctx context.Context, patents []patent.Patent) error {
	args := m.Called(ctx, patents)
	return args.Error(0)
}

func (m *MockStore) Load(ctx context.Context, start, end patent.Date) ([]patent.Patent, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]patent.Patent), args.Error(1)
}

func (m *MockStore) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

var _ patent.Store = (*MockStore)(nil)
