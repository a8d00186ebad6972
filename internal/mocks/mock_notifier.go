package mocks

import (
	"context"

	"github.com/saurabh97858/myshow-sub000/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, holderID string, event domain.Event) error {
	args := m.Called(ctx, holderID, event)
	return args.Error(0)
}
