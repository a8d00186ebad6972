package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/saurabh97858/myshow-sub000/internal/domain"
)

type MemoryBookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]*domain.Booking
}

func NewMemoryBookingRepository() *MemoryBookingRepository {
	return &MemoryBookingRepository{
		bookings: make(map[string]*domain.Booking),
	}
}

func copyBooking(b *domain.Booking) *domain.Booking {
	c := *b
	c.Seats = slices.Clone(b.Seats)

	return &c
}

func (m *MemoryBookingRepository) Create(_ context.Context, booking *domain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.bookings[booking.ID]; ok {
		return domain.ErrEditConflict
	}

	m.bookings[booking.ID] = copyBooking(booking)

	return nil
}

func (m *MemoryBookingRepository) GetByID(_ context.Context, id string) (*domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.bookings[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	return copyBooking(b), nil
}

func (m *MemoryBookingRepository) ListByUser(
	_ context.Context,
	userID string,
	pagination domain.Pagination) ([]*domain.Booking, *domain.Metadata, error) {

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*domain.Booking
	for _, b := range m.bookings {
		if b.UserID == userID {
			matched = append(matched, b)
		}
	}

	slices.SortFunc(matched, func(a, b *domain.Booking) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	bookings := make([]*domain.Booking, 0)
	for _, b := range paginate(matched, pagination) {
		bookings = append(bookings, copyBooking(b))
	}

	return bookings, domain.NewMetadata(len(matched), pagination.Page, pagination.PageSize), nil
}

func (m *MemoryBookingRepository) UpdateStatus(
	_ context.Context,
	booking *domain.Booking,
	from domain.BookingStatus) error {

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.bookings[booking.ID]
	if !ok {
		return domain.ErrRecordNotFound
	}

	if stored.Status != from {
		return domain.ErrEditConflict
	}

	stored.Status = booking.Status
	stored.PaymentReference = booking.PaymentReference
	stored.UpdatedAt = booking.UpdatedAt

	return nil
}

func (m *MemoryBookingRepository) ListPendingCreatedBefore(
	_ context.Context,
	before time.Time,
	limit int) ([]*domain.Booking, error) {

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*domain.Booking
	for _, b := range m.bookings {
		if b.Status == domain.BookingStatusPending && b.CreatedAt.Before(before) {
			matched = append(matched, b)
		}
	}

	slices.SortFunc(matched, func(a, b *domain.Booking) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	if len(matched) > limit {
		matched = matched[:limit]
	}

	bookings := make([]*domain.Booking, 0, len(matched))
	for _, b := range matched {
		bookings = append(bookings, copyBooking(b))
	}

	return bookings, nil
}
