// Package booking turns seat holds into bookings and drives their lifecycle.
package booking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/saurabh97858/myshow-sub000/internal/domain"
	"github.com/saurabh97858/myshow-sub000/internal/metrics"
)

const (
	defaultSweepBatchSize = 100

	releaseCancellation = "cancellation"
	releaseCompensation = "compensation"
	releaseExpiry       = "expiry"
)

// SeatEngine is the part of the reservation engine the workflow needs.
type SeatEngine interface {
	Reserve(ctx context.Context, showtimeID string, seats []string, holderID string) ([]string, error)
	Release(ctx context.Context, showtimeID string, seats []string, holderID string) ([]string, error)
	Confirm(ctx context.Context, showtimeID string, seats []string, holderID string) error
	ExpireHolds(ctx context.Context, showtimeID string) (map[string][]string, error)
	HoldWindow() time.Duration
}

type CreateInput struct {
	UserID     string
	ShowtimeID string
	Seats      []string
	Email      string
}

type SweepResult struct {
	ExpiredBookings int `json:"expiredBookings"`
	ReleasedSeats   int `json:"releasedSeats"`
	OrphanedSeats   int `json:"orphanedSeats"`
}

type Service struct {
	engine    SeatEngine
	showtimes domain.ShowtimeRepository
	bookings  domain.BookingRepository
	notifier  domain.Notifier
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
	batchSize int
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithSweepBatchSize caps how many pending bookings one sweep page loads.
func WithSweepBatchSize(n int) Option {
	return func(s *Service) {
		s.batchSize = n
	}
}

func NewService(
	engine SeatEngine,
	showtimes domain.ShowtimeRepository,
	bookings domain.BookingRepository,
	notifier domain.Notifier,
	opts ...Option) *Service {

	s := &Service{
		engine:    engine,
		showtimes: showtimes,
		bookings:  bookings,
		notifier:  notifier,
		metrics:   metrics.NewNop(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
		batchSize: defaultSweepBatchSize,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Service) HoldWindow() time.Duration {
	return s.engine.HoldWindow()
}

// Create holds the seats and records a pending booking for them. If the
// booking cannot be written the seats are released again before returning.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Booking, error) {
	bookingID := uuid.NewString()

	seats, err := s.engine.Reserve(ctx, in.ShowtimeID, in.Seats, bookingID)
	if err != nil {
		return nil, err
	}

	showtime, err := s.showtimes.GetByID(ctx, in.ShowtimeID)
	if err != nil {
		s.compensate(ctx, in.ShowtimeID, seats, bookingID)
		return nil, fmt.Errorf("%w: load showtime: %w", domain.ErrPersistenceFailure, err)
	}

	now := s.now().UTC()

	booking := &domain.Booking{
		ID:         bookingID,
		UserID:     in.UserID,
		ShowtimeID: in.ShowtimeID,
		Seats:      seats,
		TotalPrice: showtime.TotalPrice(seats),
		Email:      in.Email,
		Status:     domain.BookingStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.bookings.Create(ctx, booking)
	if err != nil {
		s.compensate(ctx, in.ShowtimeID, seats, bookingID)
		return nil, fmt.Errorf("%w: write booking: %w", domain.ErrPersistenceFailure, err)
	}

	s.logger.Info("booking created",
		"booking_id", booking.ID, "showtime_id", booking.ShowtimeID, "seats", booking.Seats)

	s.notify(ctx, booking, domain.EventBookingHeld)

	return booking, nil
}

// compensate gives back seats whose booking was never written. A failure here
// leaves unconfirmed holds behind, which the expiry sweep reclaims.
func (s *Service) compensate(ctx context.Context, showtimeID string, seats []string, holderID string) {
	released, err := s.engine.Release(context.WithoutCancel(ctx), showtimeID, seats, holderID)
	if err != nil {
		s.logger.Error("compensating release failed",
			"showtime_id", showtimeID, "holder_id", holderID, "seats", seats, "error", err)
		return
	}

	s.countReleased(releaseCompensation, len(released))
	s.logger.Warn("booking write failed, seats released",
		"showtime_id", showtimeID, "holder_id", holderID, "seats", released)
}

// Get returns the booking if it belongs to userID. Someone else's booking is
// reported as missing.
func (s *Service) Get(ctx context.Context, userID, bookingID string) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.UserID != userID {
		return nil, domain.ErrRecordNotFound
	}

	return booking, nil
}

func (s *Service) List(
	ctx context.Context,
	userID string,
	pagination domain.Pagination) ([]*domain.Booking, *domain.Metadata, error) {

	return s.bookings.ListByUser(ctx, userID, pagination)
}

// ConfirmPayment records a successful payment. The seats become permanent
// holds; a booking whose hold lapsed is expired instead and ErrHoldExpired is
// returned so the user can select seats again.
func (s *Service) ConfirmPayment(ctx context.Context, userID, bookingID, paymentRef string) (*domain.Booking, error) {
	booking, err := s.Get(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}

	switch booking.Status {
	case domain.BookingStatusPaid:
		return booking, nil
	case domain.BookingStatusCancelled, domain.BookingStatusExpired:
		return nil, domain.ErrBookingNotPending
	}

	err = s.engine.Confirm(ctx, booking.ShowtimeID, booking.Seats, booking.ID)
	if err != nil {
		if errors.Is(err, domain.ErrHoldExpired) || errors.Is(err, domain.ErrHoldNotFound) {
			if _, _, expireErr := s.expire(ctx, booking); expireErr != nil {
				s.logger.Error("failed to expire lapsed booking", "booking_id", booking.ID, "error", expireErr)
			}

			return nil, domain.ErrHoldExpired
		}

		return nil, err
	}

	booking.Status = domain.BookingStatusPaid
	booking.PaymentReference = paymentRef
	booking.UpdatedAt = s.now().UTC()

	err = s.bookings.UpdateStatus(ctx, booking, domain.BookingStatusPending)
	if err != nil {
		if errors.Is(err, domain.ErrEditConflict) {
			return nil, domain.ErrBookingNotPending
		}

		return nil, err
	}

	s.notify(ctx, booking, domain.EventBookingPaid)

	return booking, nil
}

// Cancel marks the booking cancelled and then frees its seats. Cancelling an
// already cancelled booking repeats the release, so a release that failed
// earlier can be retried by cancelling again.
func (s *Service) Cancel(ctx context.Context, userID, bookingID string) (*domain.Booking, error) {
	booking, err := s.Get(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}

	first := false

	// the status may move underneath us (payment, sweep); retry on the fresh row
	for attempt := 0; booking.HoldsSeats() && attempt < 3; attempt++ {
		from := booking.Status

		booking.Status = domain.BookingStatusCancelled
		booking.UpdatedAt = s.now().UTC()

		err = s.bookings.UpdateStatus(ctx, booking, from)
		if err == nil {
			first = true
			break
		}

		if !errors.Is(err, domain.ErrEditConflict) {
			return nil, err
		}

		booking, err = s.bookings.GetByID(ctx, bookingID)
		if err != nil {
			return nil, err
		}
	}

	switch booking.Status {
	case domain.BookingStatusExpired:
		return nil, domain.ErrBookingNotPending
	case domain.BookingStatusCancelled:
	default:
		return nil, domain.ErrEditConflict
	}

	released, err := s.engine.Release(ctx, booking.ShowtimeID, booking.Seats, booking.ID)
	if err != nil {
		return nil, err
	}

	s.countReleased(releaseCancellation, len(released))

	if first {
		s.logger.Info("booking cancelled", "booking_id", booking.ID, "released", released)
		s.notify(ctx, booking, domain.EventBookingCancelled)
	}

	return booking, nil
}

// expire moves a pending booking to expired and releases its seats. It returns
// the seats it actually freed, and reports false when the booking had already
// left the pending state.
func (s *Service) expire(ctx context.Context, booking *domain.Booking) ([]string, bool, error) {
	booking.Status = domain.BookingStatusExpired
	booking.UpdatedAt = s.now().UTC()

	err := s.bookings.UpdateStatus(ctx, booking, domain.BookingStatusPending)
	if err != nil {
		if errors.Is(err, domain.ErrEditConflict) {
			return nil, false, nil
		}

		return nil, false, err
	}

	released, err := s.engine.Release(ctx, booking.ShowtimeID, booking.Seats, booking.ID)
	if err != nil {
		return nil, true, fmt.Errorf("release seats of booking %s: %w", booking.ID, err)
	}

	s.countReleased(releaseExpiry, len(released))
	s.notify(ctx, booking, domain.EventBookingExpired)

	return released, true, nil
}

// SweepExpired expires pending bookings whose hold window has passed, then
// clears lapsed holds that have no booking behind them.
func (s *Service) SweepExpired(ctx context.Context) (SweepResult, error) {
	var (
		result SweepResult
		errs   []error
	)

	window := s.engine.HoldWindow()
	cutoff := s.now().Add(-window)

	for {
		pending, err := s.bookings.ListPendingCreatedBefore(ctx, cutoff, s.batchSize)
		if err != nil {
			errs = append(errs, fmt.Errorf("list pending bookings: %w", err))
			break
		}

		failed := 0
		for _, booking := range pending {
			released, expired, err := s.expire(ctx, booking)
			if err != nil {
				failed++
				errs = append(errs, err)
			}
			if expired {
				result.ExpiredBookings++
				result.ReleasedSeats += len(released)
			}
		}

		// a page that could not be fully processed would come back unchanged
		if len(pending) < s.batchSize || failed > 0 {
			break
		}
	}

	ids, err := s.showtimes.ListIDsWithHolds(ctx, cutoff)
	if err != nil {
		errs = append(errs, fmt.Errorf("list showtimes with holds: %w", err))
	}

	for _, id := range ids {
		expired, err := s.engine.ExpireHolds(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("expire holds of showtime %s: %w", id, err))
			continue
		}

		for holder, seats := range expired {
			result.OrphanedSeats += len(seats)
			s.logger.Info("lapsed holds cleared", "showtime_id", id, "holder_id", holder, "seats", seats)
		}
	}

	s.countReleased(releaseExpiry, result.OrphanedSeats)

	err = errors.Join(errs...)
	if err != nil {
		s.metrics.SweepsTotal.WithLabelValues("failure").Inc()
	} else {
		s.metrics.SweepsTotal.WithLabelValues("success").Inc()
	}

	return result, err
}

func (s *Service) notify(ctx context.Context, booking *domain.Booking, eventType domain.EventType) {
	if s.notifier == nil {
		return
	}

	event := domain.NewBookingEvent(eventType, booking, s.now().UTC())

	err := s.notifier.Notify(context.WithoutCancel(ctx), booking.ID, event)
	if err != nil {
		s.logger.Error("failed to send notification",
			"booking_id", booking.ID, "event", eventType, "error", err)
	}
}

func (s *Service) countReleased(reason string, n int) {
	if n == 0 {
		return
	}

	s.metrics.SeatsReleasedTotal.WithLabelValues(reason).Add(float64(n))
}
