// Package api holds the HTTP wire types and the OpenAPI description of the
// service.
package api

import (
	"time"

	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Message   string    `json:"message"`
	RequestId string    `json:"requestId"`
	Timestamp time.Time `json:"timestamp"`
}

type ValidationError struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

type ValidationErrorResponse struct {
	Message          string            `json:"message"`
	RequestId        string            `json:"requestId"`
	Timestamp        time.Time         `json:"timestamp"`
	ValidationErrors []ValidationError `json:"validationErrors,omitempty"`
}

type SeatsUnavailableResponse struct {
	Message          string    `json:"message"`
	RequestId        string    `json:"requestId"`
	Timestamp        time.Time `json:"timestamp"`
	UnavailableSeats []string  `json:"unavailableSeats"`
}

type SystemInfo struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

type HealthcheckResponse struct {
	Status     string     `json:"status"`
	SystemInfo SystemInfo `json:"systemInfo"`
}

type Metadata struct {
	CurrentPage  int `json:"currentPage"`
	FirstPage    int `json:"firstPage"`
	LastPage     int `json:"lastPage"`
	PageSize     int `json:"pageSize"`
	TotalRecords int `json:"totalRecords"`
}

type ListParams struct {
	Page     *int `json:"page" validate:"omitempty,min=1"`
	PageSize *int `json:"pageSize" validate:"omitempty,min=1,max=100"`
}

type PriceTiers struct {
	Standard decimal.Decimal `json:"standard" validate:"price"`
	Premium  decimal.Decimal `json:"premium" validate:"price"`
	VIP      decimal.Decimal `json:"vip" validate:"price"`
}

type SeatLayout struct {
	Rows        int      `json:"rows" validate:"required,min=1,max=26"`
	SeatsPerRow int      `json:"seatsPerRow" validate:"required,min=1,max=99"`
	PremiumRows []string `json:"premiumRows,omitempty" validate:"omitempty,row_letters"`
	VIPRows     []string `json:"vipRows,omitempty" validate:"omitempty,row_letters"`
}

type ShowtimeResponse struct {
	Id        string     `json:"id"`
	MovieId   string     `json:"movieId"`
	VenueId   string     `json:"venueId"`
	StartTime time.Time  `json:"startTime"`
	Prices    PriceTiers `json:"prices"`
	Layout    SeatLayout `json:"layout"`
	Capacity  int        `json:"capacity"`
	CreatedAt time.Time  `json:"createdAt"`
}

type ShowtimeListResponse struct {
	Showtimes []ShowtimeResponse `json:"showtimes"`
	Metadata  Metadata           `json:"metadata"`
}

type SeatMapResponse struct {
	ShowtimeId     string   `json:"showtimeId"`
	Capacity       int      `json:"capacity"`
	OccupiedSeats  []string `json:"occupiedSeats"`
	AvailableCount int      `json:"availableCount"`
}

type CreateBookingRequest struct {
	Seats []string `json:"seats" validate:"required,min=1,max=10,dive,seat_id"`
	Email *string  `json:"email,omitempty" validate:"omitempty,email,max=254"`
}

type BookingResponse struct {
	Id               string          `json:"id"`
	ShowtimeId       string          `json:"showtimeId"`
	Seats            []string        `json:"seats"`
	TotalPrice       decimal.Decimal `json:"totalPrice"`
	Status           string          `json:"status"`
	PaymentReference string          `json:"paymentReference,omitempty"`
	HoldExpiresAt    *time.Time      `json:"holdExpiresAt,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

type BookingListResponse struct {
	Bookings []BookingResponse `json:"bookings"`
	Metadata Metadata          `json:"metadata"`
}

type ConfirmPaymentRequest struct {
	PaymentReference string `json:"paymentReference" validate:"required,max=100"`
}

type CreateShowtimeRequest struct {
	MovieId   string     `json:"movieId" validate:"required,max=64"`
	VenueId   string     `json:"venueId" validate:"required,max=64"`
	StartTime time.Time  `json:"startTime" validate:"required"`
	Prices    PriceTiers `json:"prices" validate:"required"`
	Layout    SeatLayout `json:"layout" validate:"required"`
}

type CreateShowtimeBatchRequest struct {
	Showtimes []CreateShowtimeRequest `json:"showtimes" validate:"required,min=1,max=100,dive"`
}

type PurgeShowtimesRequest struct {
	Before time.Time `json:"before" validate:"required"`
}

type PurgeShowtimesResponse struct {
	Deleted int64 `json:"deleted"`
}

type SweepResponse struct {
	ExpiredBookings int `json:"expiredBookings"`
	ReleasedSeats   int `json:"releasedSeats"`
	OrphanedSeats   int `json:"orphanedSeats"`
}
