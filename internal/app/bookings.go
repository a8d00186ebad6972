package app

import (
	"net/http"

	"github.com/saurabh97858/myshow-sub000/api"
	"github.com/saurabh97858/myshow-sub000/internal/booking"
	"github.com/saurabh97858/myshow-sub000/internal/domain"
)

func (app *Application) CreateBooking(w http.ResponseWriter, r *http.Request, showtimeID string) {
	logger := app.contextGetLogger(r)
	identity := app.contextGetIdentity(r)

	var req api.CreateBookingRequest

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

	in := booking.CreateInput{
		UserID:     identity,
		ShowtimeID: showtimeID,
		Seats:      req.Seats,
	}

	if req.Email != nil {
		in.Email = *req.Email
	}

	created, err := app.bookings.Create(r.Context(), in)
	if err != nil {
		logger.Info("booking rejected", "showtime_id", showtimeID, "seats", req.Seats, "error", err)
		app.reservationErrorResponse(w, r, err)
		return
	}

	headers := make(http.Header)
	headers.Set("Location", "/users/me/bookings/"+created.ID)

	err = app.writeJSON(w, http.StatusCreated, app.toBookingResponse(created), headers)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) ListMyBookings(w http.ResponseWriter, r *http.Request) {
	identity := app.contextGetIdentity(r)

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

	bookings, metadata, err := app.bookings.List(r.Context(), identity, toPagination(params))
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := api.BookingListResponse{
		Bookings: make([]api.BookingResponse, len(bookings)),
		Metadata: toApiMetadata(metadata),
	}

	for i, b := range bookings {
		resp.Bookings[i] = app.toBookingResponse(b)
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetMyBooking(w http.ResponseWriter, r *http.Request, bookingID string) {
	identity := app.contextGetIdentity(r)

	b, err := app.bookings.Get(r.Context(), identity, bookingID)
	if err != nil {
		app.reservationErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, app.toBookingResponse(b), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) ConfirmPayment(w http.ResponseWriter, r *http.Request, bookingID string) {
	identity := app.contextGetIdentity(r)

	var req api.ConfirmPaymentRequest

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

	paid, err := app.bookings.ConfirmPayment(r.Context(), identity, bookingID, req.PaymentReference)
	if err != nil {
		app.reservationErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, app.toBookingResponse(paid), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) CancelBooking(w http.ResponseWriter, r *http.Request, bookingID string) {
	identity := app.contextGetIdentity(r)

	cancelled, err := app.bookings.Cancel(r.Context(), identity, bookingID)
	if err != nil {
		app.reservationErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, app.toBookingResponse(cancelled), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) toBookingResponse(b *domain.Booking) api.BookingResponse {
	resp := api.BookingResponse{
		Id:               b.ID,
		ShowtimeId:       b.ShowtimeID,
		Seats:            b.Seats,
		TotalPrice:       b.TotalPrice,
		Status:           string(b.Status),
		PaymentReference: b.PaymentReference,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}

	if b.Status == domain.BookingStatusPending {
		expiresAt := b.HoldExpiresAt(app.bookings.HoldWindow())
		resp.HoldExpiresAt = &expiresAt
	}

	return resp
}

