package domain

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Hold is a seat's current claim. Confirmed holds belong to paid bookings and
// never expire.
type Hold struct {
	HolderID  string    `json:"holderId" bson:"holder_id"`
	HeldAt    time.Time `json:"heldAt" bson:"held_at"`
	Confirmed bool      `json:"confirmed" bson:"confirmed"`
}

// Expired reports whether an unconfirmed hold has outlived window at now.
func (h Hold) Expired(now time.Time, window time.Duration) bool {
	return !h.Confirmed && !h.HeldAt.Add(window).After(now)
}

// SeatMap maps a seat id to its hold. A missing key is a free seat.
type SeatMap map[string]Hold

func (m SeatMap) Clone() SeatMap {
	if m == nil {
		return SeatMap{}
	}

	return maps.Clone(m)
}

// Occupied returns the sorted seat ids whose holds are still live at now.
func (m SeatMap) Occupied(now time.Time, window time.Duration) []string {
	seats := make([]string, 0, len(m))

	for seat, hold := range m {
		if hold.Expired(now, window) {
			continue
		}

		seats = append(seats, seat)
	}

	slices.Sort(seats)

	return seats
}

type Showtime struct {
	ID        string
	MovieID   string
	VenueID   string
	StartTime time.Time
	Prices    PriceTiers
	Layout    SeatLayout
	SeatMap   SeatMap
	Version   int64
	CreatedAt time.Time
}

func (s *Showtime) HasStarted(now time.Time) bool {
	return !s.StartTime.After(now)
}

// TotalPrice sums the tier price of every seat.
func (s *Showtime) TotalPrice(seats []string) decimal.Decimal {
	total := decimal.Zero

	for _, seat := range seats {
		total = total.Add(s.Prices.PriceOf(s.Layout.TierOf(seat)))
	}

	return total
}

// SeatMapStore is the persistence contract the reservation engine commits
// through. CompareAndSwapSeatMap must replace the seat map and bump the version
// only when the stored version still equals version, returning ErrEditConflict
// otherwise.
type SeatMapStore interface {
	GetByID(ctx context.Context, id string) (*Showtime, error)
	CompareAndSwapSeatMap(ctx context.Context, id string, version int64, seatMap SeatMap) error
}

type ShowtimeRepository interface {
	SeatMapStore
	Create(ctx context.Context, showtime *Showtime) error
	CreateBatch(ctx context.Context, showtimes []*Showtime) error
	ListUpcomingByMovie(ctx context.Context, movieID string, now time.Time, pagination Pagination) ([]*Showtime, *Metadata, error)
	ListIDsWithHolds(ctx context.Context, startsAfter time.Time) ([]string, error)
	Delete(ctx context.Context, id string) error
	DeleteStartedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
