package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusPaid      BookingStatus = "paid"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusExpired   BookingStatus = "expired"
)

// Booking is the persisted purchase of seats. Its ID is also the holder id of
// its seats in the showtime seat map.
type Booking struct {
	ID               string
	UserID           string
	ShowtimeID       string
	Seats            []string
	TotalPrice       decimal.Decimal
	Email            string
	Status           BookingStatus
	PaymentReference string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HoldsSeats reports whether the booking is expected to own its seats in the
// seat map.
func (b *Booking) HoldsSeats() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusPaid
}

type BookingRepository interface {
	Create(ctx context.Context, booking *Booking) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	ListByUser(ctx context.Context, userID string, pagination Pagination) ([]*Booking, *Metadata, error)
	// UpdateStatus persists booking's status, payment reference and update time
	// if the stored status is still from.
	UpdateStatus(ctx context.Context, booking *Booking, from BookingStatus) error
	ListPendingCreatedBefore(ctx context.Context, before time.Time, limit int) ([]*Booking, error)
}

// HoldExpiresAt is when a pending booking's seats become reclaimable.
func (b *Booking) HoldExpiresAt(window time.Duration) time.Time {
	return b.CreatedAt.Add(window)
}
