package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"smartparking/internal/auth"
	"smartparking/internal/db"
	"smartparking/internal/service"
)

type Deps struct {
	Reservations *service.ReservationService
	Admin        *service.AdminService
	Auth         service.AuthService
	Receipts     *service.ReceiptFormatter
	Logger       *zap.Logger
}

func NewRouter(d Deps) *mux.Router {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	receipts := d.Receipts
	if receipts == nil {
		receipts = service.NewReceiptFormatter()
	}

	userHandler := NewUserHandler(d.Reservations, receipts)
	admins := d.Admin
	if admins == nil {
		admins = service.NewAdminService(d.Reservations, nil)
	}
	adminHandler := NewAdminHandler(admins)
	authHandler := NewAuthHandler(d.Auth)
	eventsHandler := NewEventsHandler(d.Reservations.Bus)

	r := mux.NewRouter()
	r.Use(RequestLogger(logger))

	// Public endpoints
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST")

	// User endpoints
	api := r.PathPrefix("/api").Subrouter()
	api.Use(auth.Middleware(d.Auth))
	api.HandleFunc("/lots", userHandler.ListLots).Methods("GET")
	api.HandleFunc("/lots/{id}", userHandler.GetLot).Methods("GET")
	api.HandleFunc("/lots/{id}/availability", userHandler.GetAvailability).Methods("GET")
	api.HandleFunc("/bookings", userHandler.CreateBooking).Methods("POST")
	api.HandleFunc("/bookings", userHandler.ListBookings).Methods("GET")
	api.HandleFunc("/bookings/recent", userHandler.RecentBookings).Methods("GET")
	api.HandleFunc("/bookings/{id}", userHandler.GetBooking).Methods("GET")
	api.HandleFunc("/bookings/{id}/cancel", userHandler.CancelBooking).Methods("POST")
	api.HandleFunc("/bookings/{id}/receipt", userHandler.DownloadReceipt).Methods("GET")
	api.HandleFunc("/stats", userHandler.GetStats).Methods("GET")
	api.HandleFunc("/events", eventsHandler.Stream).Methods("GET")

	// Admin endpoints (protected)
	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(auth.Middleware(d.Auth), auth.RequireRole(db.RoleAdmin))
	admin.HandleFunc("/lots", adminHandler.CreateLot).Methods("POST")
	admin.HandleFunc("/lots/{id}", adminHandler.DeleteLot).Methods("DELETE")
	admin.HandleFunc("/bookings", adminHandler.ListBookings).Methods("GET")
	admin.HandleFunc("/bookings/{id}/cancel", adminHandler.CancelBooking).Methods("POST")
	admin.HandleFunc("/expire", adminHandler.RunExpiry).Methods("POST")
	admin.HandleFunc("/snapshot", adminHandler.SaveSnapshot).Methods("POST")

	return r
}
