package api

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Auth
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
type LoginResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

// Bookings
type CreateBookingRequest struct {
	LotID    string `json:"lotId" validate:"required"`
	Duration int    `json:"duration"`
}

// Lots
type CreateLotRequest struct {
	ID             string  `json:"id"`
	Name           string  `json:"name" validate:"required"`
	Address        string  `json:"address" validate:"required"`
	TotalSpots     int     `json:"total_spots" validate:"gte=0"`
	AvailableSpots *int    `json:"available_spots" validate:"omitempty,gte=0"`
	HourlyRate     float64 `json:"hourly_rate" validate:"gt=0"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ExpireResponse struct {
	Expired int `json:"expired"`
}
