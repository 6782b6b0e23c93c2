package entities

type AvailabilityResponse struct {
	LotID          string `json:"lot_id"`
	AvailableSpots int    `json:"available_spots"`
	TotalSpots     int    `json:"total_spots"`
	IsAvailable    bool   `json:"is_available"`
}
