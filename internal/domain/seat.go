package domain

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	MaxRows        = 26
	MaxSeatsPerRow = 99
)

var seatIDRgx = regexp.MustCompile(`^[A-Z][1-9][0-9]?$`)

type SeatTier string

const (
	SeatTierStandard SeatTier = "standard"
	SeatTierPremium  SeatTier = "premium"
	SeatTierVIP      SeatTier = "vip"
)

// SeatLayout describes a venue's seat naming scheme: rows lettered from A and
// seats numbered from 1.
type SeatLayout struct {
	Rows        int      `json:"rows"`
	SeatsPerRow int      `json:"seatsPerRow"`
	PremiumRows []string `json:"premiumRows,omitempty"`
	VIPRows     []string `json:"vipRows,omitempty"`
}

type PriceTiers struct {
	Standard decimal.Decimal `json:"standard"`
	Premium  decimal.Decimal `json:"premium"`
	VIP      decimal.Decimal `json:"vip"`
}

// NormalizeSeatID upper-cases and trims a seat id.
func NormalizeSeatID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// IsWellFormedSeatID reports whether id is a row letter followed by a seat
// number, without looking at any layout.
func IsWellFormedSeatID(id string) bool {
	return seatIDRgx.MatchString(id)
}

// NormalizeSeats normalizes ids and drops duplicates, keeping the first
// occurrence order.
func NormalizeSeats(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))

	for _, id := range ids {
		id = NormalizeSeatID(id)
		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out
}

func parseSeatID(id string) (row byte, number int, ok bool) {
	if !IsWellFormedSeatID(id) {
		return 0, 0, false
	}

	n, err := strconv.Atoi(id[1:])
	if err != nil {
		return 0, 0, false
	}

	return id[0], n, true
}

func (l SeatLayout) Validate() error {
	if l.Rows < 1 || l.Rows > MaxRows {
		return fmt.Errorf("layout must have between 1 and %d rows", MaxRows)
	}
	if l.SeatsPerRow < 1 || l.SeatsPerRow > MaxSeatsPerRow {
		return fmt.Errorf("layout must have between 1 and %d seats per row", MaxSeatsPerRow)
	}

	for _, row := range append(slices.Clone(l.PremiumRows), l.VIPRows...) {
		if len(row) != 1 || !l.hasRow(row[0]) {
			return fmt.Errorf("row %q is outside the layout", row)
		}
	}

	return nil
}

func (l SeatLayout) hasRow(row byte) bool {
	return row >= 'A' && int(row-'A') < l.Rows
}

// Contains reports whether id names a seat inside the layout.
func (l SeatLayout) Contains(id string) bool {
	row, number, ok := parseSeatID(id)
	if !ok {
		return false
	}

	return l.hasRow(row) && number <= l.SeatsPerRow
}

// InvalidSeats returns the ids that do not name a seat in the layout.
func (l SeatLayout) InvalidSeats(ids []string) []string {
	var invalid []string

	for _, id := range ids {
		if !l.Contains(id) {
			invalid = append(invalid, id)
		}
	}

	return invalid
}

func (l SeatLayout) Capacity() int {
	return l.Rows * l.SeatsPerRow
}

func (l SeatLayout) TierOf(id string) SeatTier {
	id = NormalizeSeatID(id)
	if id == "" {
		return SeatTierStandard
	}
	row := id[:1]

	switch {
	case slices.Contains(l.VIPRows, row):
		return SeatTierVIP
	case slices.Contains(l.PremiumRows, row):
		return SeatTierPremium
	default:
		return SeatTierStandard
	}
}

func (p PriceTiers) PriceOf(tier SeatTier) decimal.Decimal {
	switch tier {
	case SeatTierVIP:
		return p.VIP
	case SeatTierPremium:
		return p.Premium
	default:
		return p.Standard
	}
}
