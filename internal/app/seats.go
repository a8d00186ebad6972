package app

import (
	"errors"
	"net/http"

	"github.com/saurabh97858/myshow-sub000/api"
	"github.com/saurabh97858/myshow-sub000/internal/cache"
	"github.com/saurabh97858/myshow-sub000/internal/domain"
)

// GetSeatMap reports the occupied seats of a showtime. Reads go through the
// seat map cache; every committed seat map change invalidates it.
func (app *Application) GetSeatMap(w http.ResponseWriter, r *http.Request, showtimeID string) {
	logger := app.contextGetLogger(r)

	snapshot, err := app.seatCache.Get(r.Context(), showtimeID)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warn("seat map cache read failed", "showtime_id", showtimeID, "error", err)
		}

		capacity, occupied, err := app.engine.SeatAvailability(r.Context(), showtimeID)
		if err != nil {
			if errors.Is(err, domain.ErrShowtimeNotFound) {
				app.notFoundResponse(w, r)
				return
			}

			app.serverErrorResponse(w, r, err)
			return
		}

		snapshot = &cache.Snapshot{Capacity: capacity, Occupied: occupied}

		err = app.seatCache.Set(r.Context(), showtimeID, *snapshot)
		if err != nil {
			logger.Warn("seat map cache write failed", "showtime_id", showtimeID, "error", err)
		}
	}

	resp := api.SeatMapResponse{
		ShowtimeId:     showtimeID,
		Capacity:       snapshot.Capacity,
		OccupiedSeats:  snapshot.Occupied,
		AvailableCount: snapshot.Capacity - len(snapshot.Occupied),
	}

	if resp.OccupiedSeats == nil {
		resp.OccupiedSeats = []string{}
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
