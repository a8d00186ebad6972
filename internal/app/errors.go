package app

import (
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/saurabh97858/myshow-sub000/api"
	"github.com/saurabh97858/myshow-sub000/internal/domain"
	appvalidator "github.com/saurabh97858/myshow-sub000/internal/validator"
)

const (
	ErrInternalServer = "The server encountered a problem and could not process your request"
	ErrNotFound       = "The requested resource not found"
	ErrUnauthorized   = "You must be authenticated to access this resource"
	ErrValidation     = "One or more fields are invalid"
	ErrSeatsTaken     = "Some of the selected seats were just taken, please select other seats"
	ErrBusy           = "The showtime is busy, please try again"

	// retryAfterSeconds is sent with 503 responses for lock timeouts.
	retryAfterSeconds = "1"
)

func (app *Application) logError(r *http.Request, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.contextGetLogger(r).Error(err.Error(), "method", method, "uri", uri)
}

// The errorResponse() method is a generic helper for sending JSON-formatted error
// messages to the client with a given status code.
func (app *Application) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	resp := api.ErrorResponse{
		Message:   message,
		RequestId: middleware.GetReqID(r.Context()),
		Timestamp: time.Now(),
	}

	err := app.writeJSON(w, status, resp, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(500)
	}
}

func (app *Application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)

	app.errorResponse(w, r, http.StatusInternalServerError, ErrInternalServer)
}

func (app *Application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusNotFound, ErrNotFound)
}

func (app *Application) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	message := "The " + r.Method + " method is not supported for this resource"
	app.errorResponse(w, r, http.StatusMethodNotAllowed, message)
}

func (app *Application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (app *Application) unauthorizedAccessResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusUnauthorized, ErrUnauthorized)
}

func (app *Application) editConflictResponseWithErr(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusConflict, err.Error())
}

func (app *Application) goneResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusGone, err.Error())
}

// unprocessableEntityResponse reports a request that is well formed but names
// something the domain rejects, such as a seat outside the layout.
func (app *Application) unprocessableEntityResponse(w http.ResponseWriter, r *http.Request, field string, err error) {
	resp := api.ValidationErrorResponse{
		Message:   err.Error(),
		RequestId: middleware.GetReqID(r.Context()),
		Timestamp: time.Now(),
		ValidationErrors: []api.ValidationError{
			{Field: field, Issue: err.Error()},
		},
	}

	err = app.writeJSON(w, http.StatusUnprocessableEntity, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) failedValidationResponse(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		app.badRequestResponse(w, r, err)
		return
	}

	resp := api.ValidationErrorResponse{
		Message:          ErrValidation,
		RequestId:        middleware.GetReqID(r.Context()),
		Timestamp:        time.Now(),
		ValidationErrors: make([]api.ValidationError, 0, len(validationErrs)),
	}

	for _, fieldErr := range validationErrs {
		resp.ValidationErrors = append(resp.ValidationErrors, api.ValidationError{
			Field: fieldName(fieldErr),
			Issue: appvalidator.ValidationMessage(fieldErr),
		})
	}

	err = app.writeJSON(w, http.StatusUnprocessableEntity, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) seatsUnavailableResponse(
	w http.ResponseWriter,
	r *http.Request,
	unavailable *domain.SeatsUnavailableError) {

	resp := api.SeatsUnavailableResponse{
		Message:          ErrSeatsTaken,
		RequestId:        middleware.GetReqID(r.Context()),
		Timestamp:        time.Now(),
		UnavailableSeats: unavailable.Seats,
	}

	err := app.writeJSON(w, http.StatusConflict, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) timeoutResponse(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", retryAfterSeconds)
	app.errorResponse(w, r, http.StatusServiceUnavailable, ErrBusy)
}

// reservationErrorResponse maps the errors of the reservation engine and the
// booking workflow to HTTP responses.
func (app *Application) reservationErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var (
		unavailable *domain.SeatsUnavailableError
		invalid     *domain.InvalidSeatsError
	)

	switch {
	case errors.As(err, &unavailable):
		app.seatsUnavailableResponse(w, r, unavailable)
	case errors.As(err, &invalid):
		app.unprocessableEntityResponse(w, r, "seats", invalid)
	case errors.Is(err, domain.ErrShowtimeNotFound), errors.Is(err, domain.ErrRecordNotFound):
		app.notFoundResponse(w, r)
	case errors.Is(err, domain.ErrShowtimeInPast):
		app.unprocessableEntityResponse(w, r, "showtimeId", err)
	case errors.Is(err, domain.ErrHoldExpired):
		app.goneResponse(w, r, err)
	case errors.Is(err, domain.ErrBookingNotPending), errors.Is(err, domain.ErrEditConflict):
		app.editConflictResponseWithErr(w, r, err)
	case errors.Is(err, domain.ErrTimeout):
		app.logError(r, err)
		app.timeoutResponse(w, r)
	default:
		app.serverErrorResponse(w, r, err)
	}
}

// fieldName turns a validator namespace such as CreateBookingRequest.Seats[1]
// into seats[1].
func fieldName(err validator.FieldError) string {
	ns := err.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}

	parts := strings.Split(ns, ".")
	for i, part := range parts {
		parts[i] = lowerFirst(part)
	}

	return strings.Join(parts, ".")
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}

	return string(unicode.ToLower(r)) + s[size:]
}
