package mocks

import (
	"context"
	"time"

	"github.com/saurabh97858/myshow-sub000/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockBookingRepo struct {
	mock.Mock
	domain.BookingRepository
}

func (m *MockBookingRepo) Create(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepo) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepo) ListByUser(
	ctx context.Context,
	userID string,
	pagination domain.Pagination) ([]*domain.Booking, *domain.Metadata, error) {

	args := m.Called(ctx, userID, pagination)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]*domain.Booking), args.Get(1).(*domain.Metadata), args.Error(2)
}

func (m *MockBookingRepo) UpdateStatus(ctx context.Context, booking *domain.Booking, from domain.BookingStatus) error {
	args := m.Called(ctx, booking, from)
	return args.Error(0)
}

func (m *MockBookingRepo) ListPendingCreatedBefore(ctx context.Context, before time.Time, limit int) ([]*domain.Booking, error) {
	args := m.Called(ctx, before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Booking), args.Error(1)
}
