// Package reservation owns every mutation of a showtime's seat map.
//
// Each operation runs inside a per-showtime exclusivity scope and commits
// through a version compare-and-swap on the store, re-reading the seat map on
// every attempt. A lost race is therefore retried against fresh state and is
// only reported as SeatsUnavailable when the seats are actually taken.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/saurabh97858/myshow-sub000/internal/domain"
	"github.com/saurabh97858/myshow-sub000/internal/lock"
	"github.com/saurabh97858/myshow-sub000/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/saurabh97858/myshow-sub000/internal/reservation"

// Locker provides the exclusivity scope keyed by showtime.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type Engine struct {
	store          domain.SeatMapStore
	locker         Locker
	now            func() time.Time
	holdWindow     time.Duration
	timeout        time.Duration
	maxAttempts    uint
	initialBackOff time.Duration
	maxBackOff     time.Duration
	metrics        *metrics.Metrics
	logger         *slog.Logger
	onCommit       func(ctx context.Context, showtimeID string)
	tracer         trace.Tracer
}

func NewEngine(store domain.SeatMapStore, opts ...Option) *Engine {
	e := &Engine{
		store:          store,
		locker:         lock.NewKeyedMutex(),
		now:            time.Now,
		holdWindow:     DefaultHoldWindow,
		timeout:        DefaultTimeout,
		maxAttempts:    DefaultMaxAttempts,
		initialBackOff: DefaultInitialBackOff,
		maxBackOff:     DefaultMaxBackOff,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:         otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *Engine) HoldWindow() time.Duration {
	return e.holdWindow
}

// mutation computes the next seat map from the current showtime. A nil map
// with a nil error means there is nothing to write.
type mutation func(showtime *domain.Showtime, now time.Time) (domain.SeatMap, error)

// Reserve holds every requested seat for holderID or none of them. On success
// the holds are persisted before it returns.
func (e *Engine) Reserve(ctx context.Context, showtimeID string, seats []string, holderID string) ([]string, error) {
	ctx, span := e.startSpan(ctx, "reservation.Reserve", showtimeID, len(seats))
	defer span.End()

	committed, err := e.reserve(ctx, showtimeID, seats, holderID)
	e.recordReservation(err)
	endSpan(span, err)

	return committed, err
}

func (e *Engine) reserve(ctx context.Context, showtimeID string, seats []string, holderID string) ([]string, error) {
	if holderID == "" {
		return nil, errors.New("reservation: holder id is required")
	}

	seats = domain.NormalizeSeats(seats)
	if len(seats) == 0 {
		return nil, fmt.Errorf("%w: at least one seat is required", domain.ErrInvalidSeatID)
	}

	var malformed []string
	for _, seat := range seats {
		if !domain.IsWellFormedSeatID(seat) {
			malformed = append(malformed, seat)
		}
	}
	if len(malformed) > 0 {
		return nil, &domain.InvalidSeatsError{Seats: malformed}
	}

	err := e.mutate(ctx, showtimeID, func(showtime *domain.Showtime, now time.Time) (domain.SeatMap, error) {
		if showtime.HasStarted(now) {
			return nil, domain.ErrShowtimeInPast
		}

		if invalid := showtime.Layout.InvalidSeats(seats); len(invalid) > 0 {
			return nil, &domain.InvalidSeatsError{Seats: invalid}
		}

		// A live hold by holderID is a write from an earlier attempt whose
		// acknowledgement was lost.
		var taken, missing []string
		for _, seat := range seats {
			hold, ok := showtime.SeatMap[seat]
			switch {
			case !ok || hold.Expired(now, e.holdWindow):
				missing = append(missing, seat)
			case hold.HolderID != holderID:
				taken = append(taken, seat)
			}
		}
		if len(taken) > 0 {
			return nil, &domain.SeatsUnavailableError{Seats: taken}
		}
		if len(missing) == 0 {
			return nil, nil
		}

		next := showtime.SeatMap.Clone()
		for _, seat := range missing {
			next[seat] = domain.Hold{HolderID: holderID, HeldAt: now}
		}

		return next, nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug("seats reserved", "showtime_id", showtimeID, "holder_id", holderID, "seats", seats)

	return seats, nil
}

// Release frees the given seats that holderID currently holds and returns
// them. Seats held by anyone else, or not held at all, are skipped, so
// repeating a release is a no-op.
func (e *Engine) Release(ctx context.Context, showtimeID string, seats []string, holderID string) ([]string, error) {
	ctx, span := e.startSpan(ctx, "reservation.Release", showtimeID, len(seats))
	defer span.End()

	seats = domain.NormalizeSeats(seats)

	var released []string

	err := e.mutate(ctx, showtimeID, func(showtime *domain.Showtime, _ time.Time) (domain.SeatMap, error) {
		released = released[:0]

		for _, seat := range seats {
			if hold, ok := showtime.SeatMap[seat]; ok && hold.HolderID == holderID {
				released = append(released, seat)
			}
		}

		if len(released) == 0 {
			return nil, nil
		}

		next := showtime.SeatMap.Clone()
		for _, seat := range released {
			delete(next, seat)
		}

		return next, nil
	})
	endSpan(span, err)
	if err != nil {
		return nil, err
	}

	return released, nil
}

// Confirm marks holderID's holds on seats as paid. Confirmed holds are never
// expired by the sweep.
func (e *Engine) Confirm(ctx context.Context, showtimeID string, seats []string, holderID string) error {
	ctx, span := e.startSpan(ctx, "reservation.Confirm", showtimeID, len(seats))
	defer span.End()

	seats = domain.NormalizeSeats(seats)

	err := e.mutate(ctx, showtimeID, func(showtime *domain.Showtime, now time.Time) (domain.SeatMap, error) {
		pending := false

		for _, seat := range seats {
			hold, ok := showtime.SeatMap[seat]
			if !ok || hold.HolderID != holderID {
				return nil, domain.ErrHoldNotFound
			}
			if hold.Expired(now, e.holdWindow) {
				return nil, domain.ErrHoldExpired
			}
			if !hold.Confirmed {
				pending = true
			}
		}

		if !pending {
			return nil, nil
		}

		next := showtime.SeatMap.Clone()
		for _, seat := range seats {
			hold := next[seat]
			hold.Confirmed = true
			next[seat] = hold
		}

		return next, nil
	})
	endSpan(span, err)

	return err
}

// ExpireHolds releases every unconfirmed hold older than the hold window,
// regardless of holder, and returns the freed seats grouped by holder.
func (e *Engine) ExpireHolds(ctx context.Context, showtimeID string) (map[string][]string, error) {
	ctx, span := e.startSpan(ctx, "reservation.ExpireHolds", showtimeID, 0)
	defer span.End()

	var expired map[string][]string

	err := e.mutate(ctx, showtimeID, func(showtime *domain.Showtime, now time.Time) (domain.SeatMap, error) {
		expired = make(map[string][]string)

		for seat, hold := range showtime.SeatMap {
			if hold.Expired(now, e.holdWindow) {
				expired[hold.HolderID] = append(expired[hold.HolderID], seat)
			}
		}

		if len(expired) == 0 {
			return nil, nil
		}

		next := showtime.SeatMap.Clone()
		for _, seats := range expired {
			slices.Sort(seats)

			for _, seat := range seats {
				delete(next, seat)
			}
		}

		return next, nil
	})
	endSpan(span, err)
	if err != nil {
		return nil, err
	}

	return expired, nil
}

// OccupiedSeats reads the seat map without entering the exclusivity scope. The
// result may be stale by the time the caller sees it.
func (e *Engine) OccupiedSeats(ctx context.Context, showtimeID string) ([]string, error) {
	_, occupied, err := e.SeatAvailability(ctx, showtimeID)
	return occupied, err
}

// SeatAvailability is OccupiedSeats plus the capacity of the showtime's layout.
func (e *Engine) SeatAvailability(ctx context.Context, showtimeID string) (int, []string, error) {
	showtime, err := e.store.GetByID(ctx, showtimeID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return 0, nil, domain.ErrShowtimeNotFound
		}

		return 0, nil, fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}

	return showtime.Layout.Capacity(), showtime.SeatMap.Occupied(e.now(), e.holdWindow), nil
}

// mutate applies fn inside the showtime's exclusivity scope and commits the
// result with bounded retries.
func (e *Engine) mutate(ctx context.Context, showtimeID string, fn mutation) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	waitStart := time.Now()

	unlock, err := e.locker.Lock(ctx, "showtime:"+showtimeID)
	if err != nil {
		e.observeLockWait(waitStart, "failed")

		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
		}

		return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}
	defer unlock()

	e.observeLockWait(waitStart, "acquired")

	attempts := 0
	// written is also set by a failed commit, since the store may have
	// applied it before reporting the error.
	written := false

	operation := func() (struct{}, error) {
		attempts++

		showtime, err := e.store.GetByID(ctx, showtimeID)
		if err != nil {
			if errors.Is(err, domain.ErrRecordNotFound) {
				return struct{}{}, backoff.Permanent(domain.ErrShowtimeNotFound)
			}

			return struct{}{}, err
		}

		next, err := fn(showtime, e.now())
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		if next == nil {
			return struct{}{}, nil
		}

		err = e.store.CompareAndSwapSeatMap(ctx, showtimeID, showtime.Version, next)
		if err != nil {
			if errors.Is(err, domain.ErrRecordNotFound) {
				return struct{}{}, backoff.Permanent(domain.ErrShowtimeNotFound)
			}

			written = true

			e.logger.Debug("seat map commit failed, retrying",
				"showtime_id", showtimeID, "attempt", attempts, "error", err)

			return struct{}{}, err
		}

		written = true

		return struct{}{}, nil
	}

	_, err = backoff.Retry(ctx, operation,
		backoff.WithBackOff(e.newBackOff()),
		backoff.WithMaxTries(e.maxAttempts),
	)

	if e.metrics != nil {
		e.metrics.CommitAttempts.Observe(float64(attempts))
	}

	if err != nil {
		return e.classify(ctx, err, attempts)
	}

	if written && e.onCommit != nil {
		e.onCommit(ctx, showtimeID)
	}

	return nil
}

func (e *Engine) classify(ctx context.Context, err error, attempts int) error {
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Err
	}

	switch {
	case isRejection(err):
		return err
	case ctx.Err() != nil, errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	default:
		e.logger.Error("seat map commit gave up", "attempts", attempts, "error", err)

		return fmt.Errorf("%w after %d attempts: %w", domain.ErrPersistenceFailure, attempts, err)
	}
}

func isRejection(err error) bool {
	for _, target := range []error{
		domain.ErrShowtimeNotFound,
		domain.ErrShowtimeInPast,
		domain.ErrInvalidSeatID,
		domain.ErrSeatsUnavailable,
		domain.ErrHoldNotFound,
		domain.ErrHoldExpired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}

func (e *Engine) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.initialBackOff
	b.MaxInterval = e.maxBackOff

	return b
}

func (e *Engine) startSpan(ctx context.Context, name, showtimeID string, seats int) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("showtime.id", showtimeID),
		attribute.Int("seats.count", seats),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func (e *Engine) observeLockWait(start time.Time, status string) {
	if e.metrics == nil {
		return
	}

	e.metrics.LockWaitDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
}

func (e *Engine) recordReservation(err error) {
	if e.metrics == nil {
		return
	}

	e.metrics.ReservationsTotal.WithLabelValues(Outcome(err)).Inc()
}

// Outcome names the result of a reserve call for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrSeatsUnavailable):
		return "unavailable"
	case errors.Is(err, domain.ErrInvalidSeatID):
		return "invalid_seat"
	case errors.Is(err, domain.ErrShowtimeNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrShowtimeInPast):
		return "in_past"
	case errors.Is(err, domain.ErrTimeout):
		return "timeout"
	default:
		return "persistence_error"
	}
}
