package mocks

import (
	"context"
	"time"

	"github.com/saurabh97858/myshow-sub000/internal/booking"
	"github.com/saurabh97858/myshow-sub000/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) Create(ctx context.Context, in booking.CreateInput) (*domain.Booking, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingService) Get(ctx context.Context, userID, bookingID string) (*domain.Booking, error) {
	args := m.Called(ctx, userID, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingService) List(
	ctx context.Context,
	userID string,
	pagination domain.Pagination) ([]*domain.Booking, *domain.Metadata, error) {

	args := m.Called(ctx, userID, pagination)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]*domain.Booking), args.Get(1).(*domain.Metadata), args.Error(2)
}

func (m *MockBookingService) ConfirmPayment(ctx context.Context, userID, bookingID, paymentRef string) (*domain.Booking, error) {
	args := m.Called(ctx, userID, bookingID, paymentRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingService) Cancel(ctx context.Context, userID, bookingID string) (*domain.Booking, error) {
	args := m.Called(ctx, userID, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingService) SweepExpired(ctx context.Context) (booking.SweepResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(booking.SweepResult), args.Error(1)
}

func (m *MockBookingService) HoldWindow() time.Duration {
	return 10 * time.Minute
}
