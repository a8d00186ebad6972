package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var testLayout = SeatLayout{
	Rows:        10,
	SeatsPerRow: 12,
	PremiumRows: []string{"H", "I"},
	VIPRows:     []string{"J"},
}

func TestSeatLayoutContains(t *testing.T) {
	tests := []struct {
		seat string
		want bool
	}{
		{"A1", true},
		{"J12", true},
		{"B4", true},
		{"K1", false},
		{"A13", false},
		{"A0", false},
		{"A01", false},
		{"a1", false},
		{"1A", false},
		{"", false},
		{"AA1", false},
	}

	for _, tt := range tests {
		t.Run(tt.seat, func(t *testing.T) {
			assert.Equal(t, tt.want, testLayout.Contains(tt.seat))
		})
	}
}

func TestSeatLayoutInvalidSeats(t *testing.T) {
	got := testLayout.InvalidSeats([]string{"A1", "Z9", "B4", "C99"})

	if diff := cmp.Diff([]string{"Z9", "C99"}, got); diff != "" {
		t.Errorf("InvalidSeats() mismatch (-want +got):\n%s", diff)
	}
}

func TestSeatLayoutValidate(t *testing.T) {
	tests := []struct {
		name    string
		layout  SeatLayout
		wantErr bool
	}{
		{name: "valid layout", layout: testLayout},
		{name: "no rows", layout: SeatLayout{Rows: 0, SeatsPerRow: 5}, wantErr: true},
		{name: "too many rows", layout: SeatLayout{Rows: 27, SeatsPerRow: 5}, wantErr: true},
		{name: "too many seats", layout: SeatLayout{Rows: 2, SeatsPerRow: 100}, wantErr: true},
		{name: "vip row outside layout", layout: SeatLayout{Rows: 2, SeatsPerRow: 5, VIPRows: []string{"C"}}, wantErr: true},
		{name: "premium row not a letter", layout: SeatLayout{Rows: 2, SeatsPerRow: 5, PremiumRows: []string{"AB"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.layout.Validate()
			assert.Equal(t, tt.wantErr, err != nil, "Validate() error = %v", err)
		})
	}
}

func TestNormalizeSeats(t *testing.T) {
	got := NormalizeSeats([]string{" b5", "B4", "B5", "c1 ", "b4"})

	if diff := cmp.Diff([]string{"B5", "B4", "C1"}, got); diff != "" {
		t.Errorf("NormalizeSeats() mismatch (-want +got):\n%s", diff)
	}
}

func TestShowtimeTotalPrice(t *testing.T) {
	showtime := &Showtime{
		Layout: testLayout,
		Prices: PriceTiers{
			Standard: decimal.RequireFromString("10"),
			Premium:  decimal.RequireFromString("14.5"),
			VIP:      decimal.RequireFromString("22.25"),
		},
	}

	got := showtime.TotalPrice([]string{"A1", "H3", "J7", "B2"})

	assert.True(t, decimal.RequireFromString("56.75").Equal(got), "got %s", got)
}

func TestSeatMapOccupied(t *testing.T) {
	now := time.Date(2095, 1, 1, 12, 0, 0, 0, time.UTC)
	window := 10 * time.Minute

	seatMap := SeatMap{
		"A1": {HolderID: "h1", HeldAt: now.Add(-time.Minute)},
		"A2": {HolderID: "h2", HeldAt: now.Add(-window)},
		"A3": {HolderID: "h3", HeldAt: now.Add(-time.Hour), Confirmed: true},
	}

	if diff := cmp.Diff([]string{"A1", "A3"}, seatMap.Occupied(now, window)); diff != "" {
		t.Errorf("Occupied() mismatch (-want +got):\n%s", diff)
	}
}
