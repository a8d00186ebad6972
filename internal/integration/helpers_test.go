package integration_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/saurabh97858/myshow-sub000/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var keysToIgnore = map[string]struct{}{
	"timestamp":     {},
	"requestId":     {},
	"createdAt":     {},
	"updatedAt":     {},
	"holdExpiresAt": {},
	"id":            {},
}

func prepareRequest(
	method, path string,
	body io.Reader,
	headers map[string]string,
	cookies []*http.Cookie) (*http.Request, error) {

	req := httptest.NewRequest(method, path, body)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	for _, c := range cookies {
		req.AddCookie(c)
	}

	return req, nil
}

func compareResponse(t testing.TB, body io.Reader, expectedResponse string) {
	var actual map[string]any
	require.NoError(t, json.NewDecoder(body).Decode(&actual))

	cleanMap(actual)

	var expected map[string]any
	require.NoError(t, json.Unmarshal([]byte(expectedResponse), &expected))

	// ignore nondeterministic fields while comparing
	opts := cmpopts.IgnoreMapEntries(func(k string, _ any) bool {
		_, ok := keysToIgnore[k]
		return ok
	})

	if diff := cmp.Diff(expected, actual, opts); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func cleanMap(m map[string]any) {
	for k := range m {
		if _, ok := keysToIgnore[k]; ok {
			delete(m, k)
			continue
		}
		if nested, ok := m[k].(map[string]any); ok {
			cleanMap(nested)
		}
	}
}

func adminHeaders() map[string]string {
	credentials := base64.StdEncoding.EncodeToString([]byte(TestAdminUsername + ":" + TestAdminPassword))

	return map[string]string{"Authorization": "Basic " + credentials}
}

// seedShowtime stores an 8x10 showtime with rows F and G premium and row H VIP.
func seedShowtime(t testing.TB, app *TestApp, id string, start time.Time) *domain.Showtime {
	t.Helper()

	showtime := &domain.Showtime{
		ID:        id,
		MovieID:   TestMovieId,
		VenueID:   TestVenueId + "-" + id,
		StartTime: start.UTC().Truncate(time.Second),
		Prices: domain.PriceTiers{
			Standard: decimal.RequireFromString("9.50"),
			Premium:  decimal.RequireFromString("12.00"),
			VIP:      decimal.RequireFromString("20.00"),
		},
		Layout:  domain.SeatLayout{Rows: 8, SeatsPerRow: 10, PremiumRows: []string{"F", "G"}, VIPRows: []string{"H"}},
		SeatMap: domain.SeatMap{},
	}

	require.NoError(t, app.Showtimes.Create(context.Background(), showtime))

	return showtime
}

func seatsBody(seats ...string) io.Reader {
	quoted := make([]string, len(seats))
	for i, seat := range seats {
		quoted[i] = fmt.Sprintf("%q", seat)
	}

	return strings.NewReader(`{"seats":[` + strings.Join(quoted, ",") + `]}`)
}

func sessionCookie(t testing.TB, res *http.Response) *http.Cookie {
	t.Helper()

	for _, c := range res.Cookies() {
		if c.Name == "session_id" {
			return c
		}
	}

	t.Fatal("session cookie not set")
	return nil
}

func occupiedSeats(t testing.TB, app *TestApp, showtimeID string) []string {
	t.Helper()

	showtime, err := app.Showtimes.GetByID(context.Background(), showtimeID)
	require.NoError(t, err)

	return showtime.SeatMap.Occupied(time.Now(), 10*time.Minute)
}

// holdSeats books seats for a fresh anonymous session.
func holdSeats(t testing.TB, app *TestApp, showtimeID string, seats ...string) {
	t.Helper()

	req, err := prepareRequest(http.MethodPost, "/showtimes/"+showtimeID+"/bookings", seatsBody(seats...), nil, nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func decodeJSON(res *http.Response, dst any) error {
	return json.NewDecoder(res.Body).Decode(dst)
}
