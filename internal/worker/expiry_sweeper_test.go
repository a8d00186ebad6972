package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/saurabh97858/myshow-sub000/internal/booking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockSweeper struct {
	mock.Mock
}

func (m *MockSweeper) SweepExpired(ctx context.Context) (booking.SweepResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(booking.SweepResult), args.Error(1)
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestNewExpirySweeper(t *testing.T) {
	s := NewExpirySweeper(new(MockSweeper), time.Minute, discard)

	assert.Equal(t, time.Minute, s.interval)
	assert.NotNil(t, s.stopCh)
	assert.NotNil(t, s.doneCh)
}

func TestExpirySweeperSweep(t *testing.T) {
	t.Run("logs and survives a failed pass", func(t *testing.T) {
		m := new(MockSweeper)
		m.On("SweepExpired", mock.Anything).Return(booking.SweepResult{}, errors.New("db down")).Once()

		NewExpirySweeper(m, time.Minute, discard).sweep(context.Background())

		m.AssertExpectations(t)
	})

	t.Run("reports released seats", func(t *testing.T) {
		m := new(MockSweeper)
		m.On("SweepExpired", mock.Anything).Return(booking.SweepResult{ExpiredBookings: 2, ReleasedSeats: 3}, nil).Once()

		NewExpirySweeper(m, time.Minute, discard).sweep(context.Background())

		m.AssertExpectations(t)
	})
}

func TestExpirySweeperRunsOnTicker(t *testing.T) {
	swept := make(chan struct{}, 10)

	m := new(MockSweeper)
	m.On("SweepExpired", mock.Anything).
		Return(booking.SweepResult{}, nil).
		Run(func(mock.Arguments) { swept <- struct{}{} })

	s := NewExpirySweeper(m, 10*time.Millisecond, discard)
	go s.Start(context.Background())

	select {
	case <-swept:
	case <-time.After(time.Second):
		t.Fatal("sweeper never ran")
	}

	s.Stop()
}

func TestExpirySweeperStopsWithContext(t *testing.T) {
	s := NewExpirySweeper(new(MockSweeper), time.Hour, discard)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}
