package utils

import (
	"strconv"
	"strings"
	"unicode"

	"smartparking/internal/db"
)

// FilterLots keeps the lots whose name or address contains query, ignoring case.
// An empty query returns all lots.
func FilterLots(lots []db.ParkingLot, query string) []db.ParkingLot {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return lots
	}
	out := make([]db.ParkingLot, 0, len(lots))
	for _, lot := range lots {
		if strings.Contains(strings.ToLower(lot.Name), q) || strings.Contains(strings.ToLower(lot.Address), q) {
			out = append(out, lot)
		}
	}
	return out
}

// SpotPrefix derives a short uppercase code for a lot, used as the first part
// of its spot labels: "MG Road Parking" -> "MRP". Lots without letters fall back
// to their id.
func SpotPrefix(lot db.ParkingLot) string {
	var b strings.Builder
	for _, word := range strings.Fields(lot.Name) {
		for _, r := range word {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				b.WriteRune(unicode.ToUpper(r))
				break
			}
		}
	}
	if b.Len() == 0 {
		return "L" + lot.ID
	}
	return b.String()
}

// SpotLabel formats the n-th spot of a lot.
func SpotLabel(prefix string, n int) string {
	return prefix + "-" + strconv.Itoa(n)
}

// SpotNumber parses the numeric part of a label produced by SpotLabel for prefix.
func SpotNumber(prefix, label string) (int, bool) {
	rest, ok := strings.CutPrefix(label, prefix+"-")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
