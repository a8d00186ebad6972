package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventBookingHeld      EventType = "booking.held"
	EventBookingPaid      EventType = "booking.paid"
	EventBookingCancelled EventType = "booking.cancelled"
	EventBookingExpired   EventType = "booking.expired"
)

type Event struct {
	Type       EventType       `json:"type"`
	BookingID  string          `json:"bookingId"`
	ShowtimeID string          `json:"showtimeId"`
	Seats      []string        `json:"seats"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Email      string          `json:"-"`
	OccurredAt time.Time       `json:"occurredAt"`
}

func NewBookingEvent(eventType EventType, booking *Booking, at time.Time) Event {
	return Event{
		Type:       eventType,
		BookingID:  booking.ID,
		ShowtimeID: booking.ShowtimeID,
		Seats:      booking.Seats,
		TotalPrice: booking.TotalPrice,
		Email:      booking.Email,
		OccurredAt: at,
	}
}

// Notifier delivers booking events to a holder.
type Notifier interface {
	Notify(ctx context.Context, holderID string, event Event) error
}
