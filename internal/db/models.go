package db

import "time"

type BookingStatus string

const (
	StatusActive    BookingStatus = "active"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
)

func (s BookingStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed out of s.
func (s BookingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo only allows active -> completed and active -> cancelled.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	return s == StatusActive && next.IsTerminal()
}

type ParkingLot struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Address        string  `json:"address"`
	TotalSpots     int     `json:"total_spots"`
	AvailableSpots int     `json:"available_spots"`
	HourlyRate     float64 `json:"hourly_rate"`
}

type Booking struct {
	ID            string        `json:"id"`
	LotID         string        `json:"lot_id"`
	Owner         string        `json:"owner,omitempty"`
	SpotLabel     string        `json:"spot_label"`
	StartTime     time.Time     `json:"start_time"`
	EndTime       time.Time     `json:"end_time"`
	DurationHours int           `json:"duration_hours"`
	Amount        float64       `json:"amount"`
	Status        BookingStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	ClosedAt      *time.Time    `json:"closed_at,omitempty"`
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	Phone        string
}
