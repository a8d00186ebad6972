package app

import (
	"errors"
	"net/http"

	"github.com/saurabh97858/myshow-sub000/api"
	"github.com/saurabh97858/myshow-sub000/internal/domain"
)

func (app *Application) ListMovieShowtimes(w http.ResponseWriter, r *http.Request, movieID string) {
	params, err := app.readListParams(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(params)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	showtimes, metadata, err := app.showtimeRepo.ListUpcomingByMovie(r.Context(), movieID, app.now(), toPagination(params))
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := api.ShowtimeListResponse{
		Showtimes: toShowtimeResponses(showtimes),
		Metadata:  toApiMetadata(metadata),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetShowtime(w http.ResponseWriter, r *http.Request, showtimeID string) {
	showtime, err := app.showtimeRepo.GetByID(r.Context(), showtimeID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponse(w, r)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toShowtimeResponse(showtime), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toShowtimeResponses(showtimes []*domain.Showtime) []api.ShowtimeResponse {
	resp := make([]api.ShowtimeResponse, len(showtimes))

	for i, showtime := range showtimes {
		resp[i] = toShowtimeResponse(showtime)
	}

	return resp
}

func toShowtimeResponse(showtime *domain.Showtime) api.ShowtimeResponse {
	return api.ShowtimeResponse{
		Id:        showtime.ID,
		MovieId:   showtime.MovieID,
		VenueId:   showtime.VenueID,
		StartTime: showtime.StartTime,
		Prices: api.PriceTiers{
			Standard: showtime.Prices.Standard,
			Premium:  showtime.Prices.Premium,
			VIP:      showtime.Prices.VIP,
		},
		Layout: api.SeatLayout{
			Rows:        showtime.Layout.Rows,
			SeatsPerRow: showtime.Layout.SeatsPerRow,
			PremiumRows: showtime.Layout.PremiumRows,
			VIPRows:     showtime.Layout.VIPRows,
		},
		Capacity:  showtime.Layout.Capacity(),
		CreatedAt: showtime.CreatedAt,
	}
}
