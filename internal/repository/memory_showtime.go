package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/saurabh97858/myshow-sub000/internal/domain"
)

// MemoryShowtimeRepository keeps showtimes in process memory. It honours the
// same version compare-and-swap contract as the database repositories and hands
// out copies, never its own records.
type MemoryShowtimeRepository struct {
	mu        sync.RWMutex
	showtimes map[string]*domain.Showtime
}

func NewMemoryShowtimeRepository() *MemoryShowtimeRepository {
	return &MemoryShowtimeRepository{
		showtimes: make(map[string]*domain.Showtime),
	}
}

func copyShowtime(s *domain.Showtime) *domain.Showtime {
	c := *s
	c.SeatMap = s.SeatMap.Clone()
	c.Layout.PremiumRows = slices.Clone(s.Layout.PremiumRows)
	c.Layout.VIPRows = slices.Clone(s.Layout.VIPRows)

	return &c
}

func (m *MemoryShowtimeRepository) GetByID(_ context.Context, id string) (*domain.Showtime, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.showtimes[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	return copyShowtime(s), nil
}

func (m *MemoryShowtimeRepository) CompareAndSwapSeatMap(
	_ context.Context,
	id string,
	version int64,
	seatMap domain.SeatMap) error {

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.showtimes[id]
	if !ok {
		return domain.ErrRecordNotFound
	}

	if s.Version != version {
		return domain.ErrEditConflict
	}

	s.SeatMap = seatMap.Clone()
	s.Version++

	return nil
}

func (m *MemoryShowtimeRepository) Create(ctx context.Context, showtime *domain.Showtime) error {
	return m.CreateBatch(ctx, []*domain.Showtime{showtime})
}

func (m *MemoryShowtimeRepository) CreateBatch(_ context.Context, showtimes []*domain.Showtime) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	slots := make(map[string]struct{}, len(showtimes))
	for _, s := range showtimes {
		slot := s.VenueID + "|" + s.StartTime.UTC().String()

		if _, ok := slots[slot]; ok {
			return domain.ErrShowtimeConflict
		}
		if _, ok := m.showtimes[s.ID]; ok || m.slotTaken(s.VenueID, s.StartTime) {
			return domain.ErrShowtimeConflict
		}

		slots[slot] = struct{}{}
	}

	now := time.Now().UTC()

	for _, s := range showtimes {
		s.SeatMap = domain.SeatMap{}
		s.Version = 1
		s.CreatedAt = now

		m.showtimes[s.ID] = copyShowtime(s)
	}

	return nil
}

func (m *MemoryShowtimeRepository) slotTaken(venueID string, start time.Time) bool {
	for _, s := range m.showtimes {
		if s.VenueID == venueID && s.StartTime.Equal(start) {
			return true
		}
	}

	return false
}

func (m *MemoryShowtimeRepository) ListUpcomingByMovie(
	_ context.Context,
	movieID string,
	now time.Time,
	pagination domain.Pagination) ([]*domain.Showtime, *domain.Metadata, error) {

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*domain.Showtime
	for _, s := range m.showtimes {
		if s.MovieID == movieID && s.StartTime.After(now) {
			matched = append(matched, s)
		}
	}

	slices.SortFunc(matched, func(a, b *domain.Showtime) int {
		if c := a.StartTime.Compare(b.StartTime); c != 0 {
			return c
		}

		if a.ID < b.ID {
			return -1
		}

		return 1
	})

	showtimes := make([]*domain.Showtime, 0)
	for _, s := range paginate(matched, pagination) {
		showtimes = append(showtimes, copyShowtime(s))
	}

	return showtimes, domain.NewMetadata(len(matched), pagination.Page, pagination.PageSize), nil
}

func (m *MemoryShowtimeRepository) ListIDsWithHolds(_ context.Context, startsAfter time.Time) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0)
	for _, s := range m.showtimes {
		if s.StartTime.After(startsAfter) && len(s.SeatMap) > 0 {
			ids = append(ids, s.ID)
		}
	}

	slices.Sort(ids)

	return ids, nil
}

func (m *MemoryShowtimeRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.showtimes[id]; !ok {
		return domain.ErrRecordNotFound
	}

	delete(m.showtimes, id)

	return nil
}

func (m *MemoryShowtimeRepository) DeleteStartedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for id, s := range m.showtimes {
		if s.StartTime.Before(cutoff) {
			delete(m.showtimes, id)
			deleted++
		}
	}

	return deleted, nil
}

func paginate[T any](items []T, pagination domain.Pagination) []T {
	offset := pagination.Offset()
	if offset >= len(items) || offset < 0 {
		return nil
	}

	end := min(offset+pagination.Limit(), len(items))

	return items[offset:end]
}
