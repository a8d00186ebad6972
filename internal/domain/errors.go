package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRecordNotFound   = errors.New("record not found")
	ErrEditConflict     = errors.New("edit conflict")
	ErrShowtimeConflict = errors.New("venue already has a showtime scheduled at this time")

	ErrShowtimeNotFound   = errors.New("showtime not found")
	ErrShowtimeInPast     = errors.New("showtime has already started")
	ErrInvalidSeatID      = errors.New("invalid seat id")
	ErrSeatsUnavailable   = errors.New("seat(s) are already reserved")
	ErrTimeout            = errors.New("timed out waiting for the showtime seat map")
	ErrPersistenceFailure = errors.New("seat map could not be persisted")
	ErrHoldNotFound       = errors.New("seats are not held by this booking")
	ErrHoldExpired        = errors.New("your selections have expired, please select your seats again")

	ErrBookingNotPending = errors.New("booking is no longer pending")
)

// SeatsUnavailableError carries the requested seats that another holder
// already owns.
type SeatsUnavailableError struct {
	Seats []string
}

func (e *SeatsUnavailableError) Error() string {
	return fmt.Sprintf("%s: %s", ErrSeatsUnavailable, strings.Join(e.Seats, ", "))
}

func (e *SeatsUnavailableError) Is(target error) bool {
	return target == ErrSeatsUnavailable
}

// InvalidSeatsError lists seat ids that do not exist in the showtime's layout.
type InvalidSeatsError struct {
	Seats []string
}

func (e *InvalidSeatsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidSeatID, strings.Join(e.Seats, ", "))
}

func (e *InvalidSeatsError) Is(target error) bool {
	return target == ErrInvalidSeatID
}
