package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riandyrn/otelchi"
)

func (app *Application) Routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)
	r.MethodNotAllowed(app.methodNotAllowedResponse)

	r.Use(middleware.RequestID)
	r.Use(echoRequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(app.recoverPanic)
	r.Use(otelchi.Middleware(serviceName, otelchi.WithChiRoutes(r)))
	r.Use(app.metricsMiddleware)

	r.Get("/healthcheck", app.GetHealth)
	r.Get("/openapi.json", app.GetOpenAPISpec)
	r.Handle("/metrics", promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}))

	r.Get("/movies/{movieId}/showtimes", func(w http.ResponseWriter, r *http.Request) {
		app.ListMovieShowtimes(w, r, chi.URLParam(r, "movieId"))
	})

	r.Route("/showtimes/{showtimeId}", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			app.GetShowtime(w, r, chi.URLParam(r, "showtimeId"))
		})
		r.Get("/seats", func(w http.ResponseWriter, r *http.Request) {
			app.GetSeatMap(w, r, chi.URLParam(r, "showtimeId"))
		})
		r.With(app.sessionManager.LoadAndSave, app.ensureIdentity).
			Post("/bookings", func(w http.ResponseWriter, r *http.Request) {
				app.CreateBooking(w, r, chi.URLParam(r, "showtimeId"))
			})
	})

	r.Route("/users/me/bookings", func(r chi.Router) {
		r.Use(app.sessionManager.LoadAndSave)
		r.Use(app.ensureIdentity)

		r.Get("/", app.ListMyBookings)
		r.Get("/{bookingId}", func(w http.ResponseWriter, r *http.Request) {
			app.GetMyBooking(w, r, chi.URLParam(r, "bookingId"))
		})
		r.Post("/{bookingId}/payment", func(w http.ResponseWriter, r *http.Request) {
			app.ConfirmPayment(w, r, chi.URLParam(r, "bookingId"))
		})
		r.Post("/{bookingId}/cancellation", func(w http.ResponseWriter, r *http.Request) {
			app.CancelBooking(w, r, chi.URLParam(r, "bookingId"))
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(app.requireAdmin)

		r.Post("/showtimes", app.CreateShowtime)
		r.Post("/showtimes/batch", app.CreateShowtimeBatch)
		r.Post("/showtimes/purge", app.PurgeShowtimes)
		r.Delete("/showtimes/{showtimeId}", func(w http.ResponseWriter, r *http.Request) {
			app.DeleteShowtime(w, r, chi.URLParam(r, "showtimeId"))
		})
		r.Post("/holds/sweep", app.SweepHolds)
	})

	return r
}
