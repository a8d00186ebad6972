package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSpec(t *testing.T) {
	doc, err := LoadSpec()
	require.NoError(t, err)

	routes := []struct {
		path   string
		method string
	}{
		{"/healthcheck", http.MethodGet},
		{"/movies/{movieId}/showtimes", http.MethodGet},
		{"/showtimes/{showtimeId}", http.MethodGet},
		{"/showtimes/{showtimeId}/seats", http.MethodGet},
		{"/showtimes/{showtimeId}/bookings", http.MethodPost},
		{"/users/me/bookings", http.MethodGet},
		{"/users/me/bookings/{bookingId}", http.MethodGet},
		{"/users/me/bookings/{bookingId}/payment", http.MethodPost},
		{"/users/me/bookings/{bookingId}/cancellation", http.MethodPost},
		{"/admin/showtimes", http.MethodPost},
		{"/admin/showtimes/batch", http.MethodPost},
		{"/admin/showtimes/{showtimeId}", http.MethodDelete},
		{"/admin/showtimes/purge", http.MethodPost},
		{"/admin/holds/sweep", http.MethodPost},
	}

	for _, r := range routes {
		item := doc.Paths.Find(r.path)
		if !assert.NotNil(t, item, r.path) {
			continue
		}

		assert.NotNil(t, item.GetOperation(r.method), "%s %s", r.method, r.path)
	}

	booking := doc.Components.Schemas["CreateBookingRequest"].Value
	assert.Equal(t, uint64(1), booking.Properties["seats"].Value.MinItems)
}
