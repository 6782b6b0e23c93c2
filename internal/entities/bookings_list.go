package entities

import "smartparking/internal/db"

// BookingResponse is a booking with the lot details a view needs to render it.
// Lot fields are empty when the lot has since been removed.
type BookingResponse struct {
	db.Booking
	LotName    string `json:"lot_name"`
	LotAddress string `json:"lot_address"`
}

type BookingsList struct {
	Total    int               `json:"total"`
	Bookings []BookingResponse `json:"bookings"`
}
