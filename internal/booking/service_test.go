package booking_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/saurabh97858/myshow-sub000/internal/booking"
	"github.com/saurabh97858/myshow-sub000/internal/domain"
	"github.com/saurabh97858/myshow-sub000/internal/mocks"
	"github.com/saurabh97858/myshow-sub000/internal/repository"
	"github.com/saurabh97858/myshow-sub000/internal/reservation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

const (
	showtimeID = "S1"
	userID     = "user-1"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

type ServiceTestSuite struct {
	suite.Suite
	clock     *fakeClock
	showtimes *repository.MemoryShowtimeRepository
	bookings  *repository.MemoryBookingRepository
	engine    *reservation.Engine
	notifier  *mocks.MockNotifier
	service   *booking.Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) SetupTest() {
	s.clock = &fakeClock{now: time.Date(2095, 3, 1, 12, 0, 0, 0, time.UTC)}
	s.showtimes = repository.NewMemoryShowtimeRepository()
	s.bookings = repository.NewMemoryBookingRepository()

	s.Require().NoError(s.showtimes.Create(context.Background(), &domain.Showtime{
		ID:        showtimeID,
		MovieID:   "M1",
		VenueID:   "V1",
		StartTime: s.clock.Now().Add(4 * time.Hour),
		Prices: domain.PriceTiers{
			Standard: decimal.RequireFromString("10.00"),
			Premium:  decimal.RequireFromString("15.50"),
			VIP:      decimal.RequireFromString("25.00"),
		},
		Layout: domain.SeatLayout{Rows: 8, SeatsPerRow: 10, PremiumRows: []string{"E", "F"}, VIPRows: []string{"H"}},
	}))

	s.engine = reservation.NewEngine(s.showtimes,
		reservation.WithClock(s.clock.Now),
		reservation.WithBackOff(time.Millisecond, 5*time.Millisecond),
	)

	s.notifier = new(mocks.MockNotifier)
	s.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	s.service = s.newService(s.bookings)
}

func (s *ServiceTestSuite) newService(bookings domain.BookingRepository) *booking.Service {
	return booking.NewService(s.engine, s.showtimes, bookings, s.notifier, booking.WithClock(s.clock.Now))
}

func (s *ServiceTestSuite) holders() map[string]string {
	showtime, err := s.showtimes.GetByID(context.Background(), showtimeID)
	s.Require().NoError(err)

	holders := make(map[string]string, len(showtime.SeatMap))
	for seat, hold := range showtime.SeatMap {
		holders[seat] = hold.HolderID
	}

	return holders
}

func (s *ServiceTestSuite) notified(eventType domain.EventType) []domain.Event {
	var events []domain.Event

	for _, call := range s.notifier.Calls {
		event := call.Arguments.Get(2).(domain.Event)
		if event.Type == eventType {
			events = append(events, event)
		}
	}

	return events
}

func (s *ServiceTestSuite) create(seats ...string) *domain.Booking {
	b, err := s.service.Create(context.Background(), booking.CreateInput{
		UserID:     userID,
		ShowtimeID: showtimeID,
		Seats:      seats,
		Email:      "guest@example.com",
	})
	s.Require().NoError(err)

	return b
}

func (s *ServiceTestSuite) TestCreate() {
	b := s.create("a1", "E2", "H3")

	s.Equal(domain.BookingStatusPending, b.Status)
	s.Equal([]string{"A1", "E2", "H3"}, b.Seats)
	s.True(decimal.RequireFromString("50.50").Equal(b.TotalPrice), b.TotalPrice.String())
	s.Equal(s.clock.Now().Add(reservation.DefaultHoldWindow), b.HoldExpiresAt(s.service.HoldWindow()))

	stored, err := s.bookings.GetByID(context.Background(), b.ID)
	s.Require().NoError(err)
	s.Equal(b.Seats, stored.Seats)

	s.Equal(map[string]string{"A1": b.ID, "E2": b.ID, "H3": b.ID}, s.holders())

	held := s.notified(domain.EventBookingHeld)
	s.Require().Len(held, 1)
	s.Equal(b.ID, held[0].BookingID)
	s.Equal("guest@example.com", held[0].Email)
}

func (s *ServiceTestSuite) TestCreatePassesEngineRejectionsThrough() {
	s.create("B5")

	_, err := s.service.Create(context.Background(), booking.CreateInput{UserID: "user-2", ShowtimeID: showtimeID, Seats: []string{"B5", "B6"}})

	var unavailable *domain.SeatsUnavailableError
	s.Require().ErrorAs(err, &unavailable)
	s.Equal([]string{"B5"}, unavailable.Seats)
	s.NotContains(s.holders(), "B6")
}

func (s *ServiceTestSuite) TestCreateCompensatesFailedBookingWrite() {
	failing := new(mocks.MockBookingRepo)
	failing.On("Create", mock.Anything, mock.AnythingOfType("*domain.Booking")).
		Return(errors.New("connection refused")).Once()

	service := s.newService(failing)

	_, err := service.Create(context.Background(), booking.CreateInput{UserID: "user-a", ShowtimeID: showtimeID, Seats: []string{"C1"}})
	s.ErrorIs(err, domain.ErrPersistenceFailure)

	failing.AssertExpectations(s.T())
	s.Empty(s.holders(), "seat must be free again after the failed write")
	s.Empty(s.notified(domain.EventBookingHeld))

	other, err := s.service.Create(context.Background(), booking.CreateInput{UserID: "user-c", ShowtimeID: showtimeID, Seats: []string{"C1"}})
	s.Require().NoError(err)
	s.Equal(map[string]string{"C1": other.ID}, s.holders())
}

func (s *ServiceTestSuite) TestGetHidesOtherUsersBookings() {
	b := s.create("A1")

	_, err := s.service.Get(context.Background(), "someone-else", b.ID)
	s.ErrorIs(err, domain.ErrRecordNotFound)

	got, err := s.service.Get(context.Background(), userID, b.ID)
	s.Require().NoError(err)
	s.Equal(b.ID, got.ID)
}

func (s *ServiceTestSuite) TestConfirmPayment() {
	b := s.create("A1", "A2")

	paid, err := s.service.ConfirmPayment(context.Background(), userID, b.ID, "pay_123")
	s.Require().NoError(err)
	s.Equal(domain.BookingStatusPaid, paid.Status)
	s.Equal("pay_123", paid.PaymentReference)

	again, err := s.service.ConfirmPayment(context.Background(), userID, b.ID, "pay_456")
	s.Require().NoError(err)
	s.Equal("pay_123", again.PaymentReference, "second confirmation is a no-op")
	s.Len(s.notified(domain.EventBookingPaid), 1)

	// paid seats survive the hold window and the sweep
	s.clock.Advance(time.Hour)

	_, err = s.service.SweepExpired(context.Background())
	s.Require().NoError(err)
	s.Equal(map[string]string{"A1": b.ID, "A2": b.ID}, s.holders())
}

func (s *ServiceTestSuite) TestConfirmPaymentAfterHoldLapsed() {
	b := s.create("A1")

	s.clock.Advance(reservation.DefaultHoldWindow)

	_, err := s.service.ConfirmPayment(context.Background(), userID, b.ID, "pay_late")
	s.ErrorIs(err, domain.ErrHoldExpired)

	stored, err := s.bookings.GetByID(context.Background(), b.ID)
	s.Require().NoError(err)
	s.Equal(domain.BookingStatusExpired, stored.Status)
	s.Empty(s.holders())

	_, err = s.service.ConfirmPayment(context.Background(), userID, b.ID, "pay_late")
	s.ErrorIs(err, domain.ErrBookingNotPending)
}

func (s *ServiceTestSuite) TestCancelIsIdempotent() {
	b := s.create("D1", "D2")
	s.create("D3")

	cancelled, err := s.service.Cancel(context.Background(), userID, b.ID)
	s.Require().NoError(err)
	s.Equal(domain.BookingStatusCancelled, cancelled.Status)
	s.NotContains(s.holders(), "D1")
	s.NotContains(s.holders(), "D2")
	s.Contains(s.holders(), "D3")

	_, err = s.service.Cancel(context.Background(), userID, b.ID)
	s.Require().NoError(err)
	s.Len(s.notified(domain.EventBookingCancelled), 1)

	_, err = s.service.ConfirmPayment(context.Background(), userID, b.ID, "pay")
	s.ErrorIs(err, domain.ErrBookingNotPending)
}

func (s *ServiceTestSuite) TestCancelPaidBooking() {
	b := s.create("E1")

	_, err := s.service.ConfirmPayment(context.Background(), userID, b.ID, "pay")
	s.Require().NoError(err)

	_, err = s.service.Cancel(context.Background(), userID, b.ID)
	s.Require().NoError(err)
	s.Empty(s.holders(), "confirmed holds are released by cancellation")
}

func (s *ServiceTestSuite) TestCancelExpiredBooking() {
	b := s.create("E1")

	s.clock.Advance(reservation.DefaultHoldWindow + time.Second)

	_, err := s.service.SweepExpired(context.Background())
	s.Require().NoError(err)

	_, err = s.service.Cancel(context.Background(), userID, b.ID)
	s.ErrorIs(err, domain.ErrBookingNotPending)
}

func (s *ServiceTestSuite) TestSweepExpired() {
	stale := s.create("F1", "F2")

	// a hold with no booking behind it, as left by a failed compensation
	_, err := s.engine.Reserve(context.Background(), showtimeID, []string{"G1"}, "orphan")
	s.Require().NoError(err)

	s.clock.Advance(6 * time.Minute)
	fresh := s.create("F3")
	s.clock.Advance(5 * time.Minute)

	result, err := s.service.SweepExpired(context.Background())
	s.Require().NoError(err)
	s.Equal(booking.SweepResult{ExpiredBookings: 1, ReleasedSeats: 2, OrphanedSeats: 1}, result)

	s.Equal(map[string]string{"F3": fresh.ID}, s.holders())

	stored, err := s.bookings.GetByID(context.Background(), stale.ID)
	s.Require().NoError(err)
	s.Equal(domain.BookingStatusExpired, stored.Status)

	expired := s.notified(domain.EventBookingExpired)
	s.Require().Len(expired, 1)
	s.Equal(stale.ID, expired[0].BookingID)

	result, err = s.service.SweepExpired(context.Background())
	s.Require().NoError(err)
	s.Equal(booking.SweepResult{}, result)
}

func (s *ServiceTestSuite) TestSweepExpiredCountsOnlyFreedSeats() {
	stale := s.create("C1", "C2")

	s.clock.Advance(reservation.DefaultHoldWindow + time.Minute)

	// the lapsed C2 is taken over before the sweep reaches the booking
	_, err := s.engine.Reserve(context.Background(), showtimeID, []string{"C2"}, "walk-in")
	s.Require().NoError(err)

	result, err := s.service.SweepExpired(context.Background())
	s.Require().NoError(err)
	s.Equal(booking.SweepResult{ExpiredBookings: 1, ReleasedSeats: 1}, result)

	s.Equal(map[string]string{"C2": "walk-in"}, s.holders())

	stored, err := s.bookings.GetByID(context.Background(), stale.ID)
	s.Require().NoError(err)
	s.Equal(domain.BookingStatusExpired, stored.Status)
}

func (s *ServiceTestSuite) TestSweepExpiredPagesThroughBacklog() {
	service := booking.NewService(s.engine, s.showtimes, s.bookings, s.notifier,
		booking.WithClock(s.clock.Now), booking.WithSweepBatchSize(2))

	for _, seat := range []string{"A1", "A2", "A3", "A4", "A5"} {
		s.create(seat)
	}

	s.clock.Advance(reservation.DefaultHoldWindow + time.Minute)

	result, err := service.SweepExpired(context.Background())
	s.Require().NoError(err)
	s.Equal(5, result.ExpiredBookings)
	s.Empty(s.holders())
}

func (s *ServiceTestSuite) TestNotifierFailureDoesNotFailBooking() {
	notifier := new(mocks.MockNotifier)
	notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	service := booking.NewService(s.engine, s.showtimes, s.bookings, notifier, booking.WithClock(s.clock.Now))

	_, err := service.Create(context.Background(), booking.CreateInput{UserID: userID, ShowtimeID: showtimeID, Seats: []string{"B1"}})
	s.Require().NoError(err)

	notifier.AssertNumberOfCalls(s.T(), "Notify", 1)
}
