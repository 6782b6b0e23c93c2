package service

import (
	"math"

	"smartparking/internal/db"
)

type Stats struct {
	ActiveCount   int     `json:"active_count"`
	TotalBookings int     `json:"total_bookings"`
	HoursParked   float64 `json:"hours_parked"`
	TotalSpent    float64 `json:"total_spent"`
}

// ComputeStats summarises a set of bookings. Hours count every booking that
// was not cancelled; spending counts active and completed ones. Amounts that
// are not finite numbers count as zero.
func ComputeStats(bookings []db.Booking) Stats {
	var st Stats
	st.TotalBookings = len(bookings)
	for _, b := range bookings {
		if b.Status == db.StatusActive {
			st.ActiveCount++
		}
		if b.Status != db.StatusCancelled {
			if d := b.EndTime.Sub(b.StartTime); d > 0 {
				st.HoursParked += d.Hours()
			}
		}
		if b.Status == db.StatusActive || b.Status == db.StatusCompleted {
			st.TotalSpent += finiteOrZero(b.Amount)
		}
	}
	return st
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
