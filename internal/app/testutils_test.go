package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/saurabh97858/myshow-sub000/api"
	"github.com/saurabh97858/myshow-sub000/internal/booking"
	"github.com/saurabh97858/myshow-sub000/internal/domain"
	"github.com/saurabh97858/myshow-sub000/internal/metrics"
	"github.com/saurabh97858/myshow-sub000/internal/repository"
	"github.com/saurabh97858/myshow-sub000/internal/reservation"
	"github.com/saurabh97858/myshow-sub000/internal/validator"
	"github.com/shopspring/decimal"
)

const (
	testShowtimeID = "S1"
	testIdentity   = "c3f1f5b0-5c43-4a44-9a4b-1c1b4f0b2d11"
)

// newTestApplication wires the handlers to in-memory stores and a real engine.
// Options run last and may swap any collaborator for a mock.
func newTestApplication(opts ...func(*Application)) *Application {
	showtimes := repository.NewMemoryShowtimeRepository()
	engine := reservation.NewEngine(showtimes, reservation.WithBackOff(time.Millisecond, 5*time.Millisecond))
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	app := &Application{
		config:         Config{Env: "test", Store: StoreMemory},
		validator:      validator.NewValidator(),
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		sessionManager: NewSessionManager(nil),
		registry:       registry,
		metrics:        m,
		now:            time.Now,
		showtimeRepo:   showtimes,
		engine:         engine,
		bookings: booking.NewService(engine, showtimes, repository.NewMemoryBookingRepository(), nil,
			booking.WithMetrics(m)),
	}

	for _, opt := range opts {
		opt(app)
	}

	return app
}

func newTestShowtime(id string, start time.Time) *domain.Showtime {
	return &domain.Showtime{
		ID:        id,
		MovieID:   "M1",
		VenueID:   "V-" + id,
		StartTime: start,
		Prices: domain.PriceTiers{
			Standard: decimal.RequireFromString("9.50"),
			Premium:  decimal.RequireFromString("12.00"),
			VIP:      decimal.RequireFromString("20.00"),
		},
		Layout: domain.SeatLayout{Rows: 8, SeatsPerRow: 10, PremiumRows: []string{"F", "G"}, VIPRows: []string{"H"}},
	}
}

func bookingInput(seats ...string) booking.CreateInput {
	return booking.CreateInput{UserID: testIdentity, ShowtimeID: testShowtimeID, Seats: seats}
}

func withIdentity(r *http.Request, identity string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), SessionKeyIdentity, identity))
}

func executeRequest(t *testing.T, method, url string, body any) (*httptest.ResponseRecorder, *http.Request) {
	var reader io.Reader

	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}

		reader = bytes.NewReader(jsonData)
	}

	r := httptest.NewRequest(method, url, reader)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	return w, r
}

func checkErrorResponse(t *testing.T, w *httptest.ResponseRecorder, tt struct {
	wantStatus     int
	wantErrMessage string
}) {
	if tt.wantStatus >= 200 && tt.wantStatus < 300 {
		return
	}

	switch tt.wantStatus {
	case http.StatusUnprocessableEntity:
		var validationResp api.ValidationErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&validationResp); err != nil {
			t.Fatalf("Failed to decode validation error response: %v", err)
		}

		errorSet := make(map[string]bool)
		for _, vErr := range validationResp.ValidationErrors {
			errorSet[vErr.Issue] = true
		}

		if !errorSet[tt.wantErrMessage] {
			t.Errorf("Expected validation error message '%s' not found in response %+v", tt.wantErrMessage, validationResp)
		}

	default:
		var errorResp api.ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&errorResp); err != nil {
			t.Fatalf("Failed to decode error response: %v", err)
		}

		if tt.wantErrMessage != "" && errorResp.Message != tt.wantErrMessage {
			t.Errorf("Error message = %v, want %v", errorResp.Message, tt.wantErrMessage)
		}
	}
}

func ptr[T any](v T) *T {
	return &v
}
