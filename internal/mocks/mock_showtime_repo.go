package mocks

import (
	"context"
	"time"

	"github.com/saurabh97858/myshow-sub000/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockShowtimeRepo struct {
	mock.Mock
	domain.ShowtimeRepository
}

func (m *MockShowtimeRepo) GetByID(ctx context.Context, id string) (*domain.Showtime, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Showtime), args.Error(1)
}

func (m *MockShowtimeRepo) Create(ctx context.Context, showtime *domain.Showtime) error {
	args := m.Called(ctx, showtime)
	return args.Error(0)
}

func (m *MockShowtimeRepo) CreateBatch(ctx context.Context, showtimes []*domain.Showtime) error {
	args := m.Called(ctx, showtimes)
	return args.Error(0)
}

func (m *MockShowtimeRepo) ListUpcomingByMovie(
	ctx context.Context,
	movieID string,
	now time.Time,
	pagination domain.Pagination) ([]*domain.Showtime, *domain.Metadata, error) {

	args := m.Called(ctx, movieID, now, pagination)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]*domain.Showtime), args.Get(1).(*domain.Metadata), args.Error(2)
}

func (m *MockShowtimeRepo) ListIDsWithHolds(ctx context.Context, startsAfter time.Time) ([]string, error) {
	args := m.Called(ctx, startsAfter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockShowtimeRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockShowtimeRepo) DeleteStartedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}
