package app

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/saurabh97858/myshow-sub000/api"
	"github.com/saurabh97858/myshow-sub000/internal/domain"
)

var errStartInPast = errors.New("must be in the future")

func (app *Application) CreateShowtime(w http.ResponseWriter, r *http.Request) {
	var req api.CreateShowtimeRequest

	err := app.readJSON(w, r, &req)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(req)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	showtime, field, err := app.newShowtime(req)
	if err != nil {
		app.unprocessableEntityResponse(w, r, field, err)
		return
	}

	err = app.showtimeRepo.Create(r.Context(), showtime)
	if err != nil {
		if errors.Is(err, domain.ErrShowtimeConflict) {
			app.editConflictResponseWithErr(w, r, err)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	app.contextGetLogger(r).Info("showtime scheduled",
		"showtime_id", showtime.ID, "movie_id", showtime.MovieID, "venue_id", showtime.VenueID)

	headers := make(http.Header)
	headers.Set("Location", "/showtimes/"+showtime.ID)

	err = app.writeJSON(w, http.StatusCreated, toShowtimeResponse(showtime), headers)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// CreateShowtimeBatch schedules every showtime of the request or none of them.
func (app *Application) CreateShowtimeBatch(w http.ResponseWriter, r *http.Request) {
	var req api.CreateShowtimeBatchRequest

	err := app.readJSON(w, r, &req)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(req)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	showtimes := make([]*domain.Showtime, len(req.Showtimes))

	for i, item := range req.Showtimes {
		showtime, field, err := app.newShowtime(item)
		if err != nil {
			app.unprocessableEntityResponse(w, r, fmt.Sprintf("showtimes[%d].%s", i, field), err)
			return
		}

		showtimes[i] = showtime
	}

	err = app.showtimeRepo.CreateBatch(r.Context(), showtimes)
	if err != nil {
		if errors.Is(err, domain.ErrShowtimeConflict) {
			app.editConflictResponseWithErr(w, r, err)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	app.contextGetLogger(r).Info("showtimes scheduled", "count", len(showtimes))

	err = app.writeJSON(w, http.StatusCreated, toShowtimeResponses(showtimes), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) DeleteShowtime(w http.ResponseWriter, r *http.Request, showtimeID string) {
	err := app.showtimeRepo.Delete(r.Context(), showtimeID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponse(w, r)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.seatCache.Invalidate(r.Context(), showtimeID)
	if err != nil {
		app.contextGetLogger(r).Warn("failed to invalidate seat map cache", "showtime_id", showtimeID, "error", err)
	}

	w.WriteHeader(http.StatusNoContent)
}

// PurgeShowtimes deletes every showtime that started before the cutoff.
func (app *Application) PurgeShowtimes(w http.ResponseWriter, r *http.Request) {
	var req api.PurgeShowtimesRequest

	err := app.readJSON(w, r, &req)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(req)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	if req.Before.After(app.now()) {
		app.unprocessableEntityResponse(w, r, "before", errors.New("must not be in the future"))
		return
	}

	deleted, err := app.showtimeRepo.DeleteStartedBefore(r.Context(), req.Before)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	app.contextGetLogger(r).Info("showtimes purged", "before", req.Before, "deleted", deleted)

	err = app.writeJSON(w, http.StatusOK, api.PurgeShowtimesResponse{Deleted: deleted}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// SweepHolds runs one expiry pass immediately.
func (app *Application) SweepHolds(w http.ResponseWriter, r *http.Request) {
	result, err := app.bookings.SweepExpired(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := api.SweepResponse{
		ExpiredBookings: result.ExpiredBookings,
		ReleasedSeats:   result.ReleasedSeats,
		OrphanedSeats:   result.OrphanedSeats,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// newShowtime builds a showtime with an empty seat map. On failure it also
// returns the offending request field.
func (app *Application) newShowtime(req api.CreateShowtimeRequest) (*domain.Showtime, string, error) {
	now := app.now().UTC()

	if !req.StartTime.After(now) {
		return nil, "startTime", errStartInPast
	}

	layout := domain.SeatLayout{
		Rows:        req.Layout.Rows,
		SeatsPerRow: req.Layout.SeatsPerRow,
		PremiumRows: req.Layout.PremiumRows,
		VIPRows:     req.Layout.VIPRows,
	}

	err := layout.Validate()
	if err != nil {
		return nil, "layout", err
	}

	return &domain.Showtime{
		ID:        uuid.NewString(),
		MovieID:   req.MovieId,
		VenueID:   req.VenueId,
		StartTime: req.StartTime.UTC().Truncate(time.Second),
		Prices: domain.PriceTiers{
			Standard: req.Prices.Standard,
			Premium:  req.Prices.Premium,
			VIP:      req.Prices.VIP,
		},
		Layout:  layout,
		SeatMap: domain.SeatMap{},
	}, "", nil
}
