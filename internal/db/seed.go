package db

// DefaultLots is the demo inventory loaded into an empty store.
func DefaultLots() []ParkingLot {
	return []ParkingLot{
		{ID: "1", Name: "MG Road Parking", Address: "MG Road, Bangalore, Karnataka 560001", TotalSpots: 50, AvailableSpots: 15, HourlyRate: 50},
		{ID: "2", Name: "Koramangala Plaza", Address: "8th Block, Koramangala, Bangalore, Karnataka 560034", TotalSpots: 30, AvailableSpots: 8, HourlyRate: 40},
		{ID: "3", Name: "Indiranagar Complex", Address: "100 Feet Road, Indiranagar, Bangalore, Karnataka 560038", TotalSpots: 100, AvailableSpots: 20, HourlyRate: 45},
		{ID: "4", Name: "Whitefield Tech Park", Address: "ITPL Road, Whitefield, Bangalore, Karnataka 560066", TotalSpots: 75, AvailableSpots: 25, HourlyRate: 35},
		{ID: "5", Name: "Electronic City", Address: "Phase 1, Electronic City, Bangalore, Karnataka 560100", TotalSpots: 60, AvailableSpots: 18, HourlyRate: 30},
	}
}
