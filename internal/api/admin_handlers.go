package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"smartparking/internal/db"
	"smartparking/internal/entities"
	apperrors "smartparking/internal/errors"
	"smartparking/internal/service"
)

type AdminHandler struct {
	Service *service.AdminService
}

func NewAdminHandler(svc *service.AdminService) *AdminHandler {
	return &AdminHandler{Service: svc}
}

func (h *AdminHandler) CreateLot(w http.ResponseWriter, r *http.Request) {
	var req CreateLotRequest
	if err := decode(r, &req); err != nil {
		apperrors.Write(w, err)
		return
	}
	lot := db.ParkingLot{
		ID:             req.ID,
		Name:           req.Name,
		Address:        req.Address,
		TotalSpots:     req.TotalSpots,
		AvailableSpots: req.TotalSpots,
		HourlyRate:     req.HourlyRate,
	}
	if req.AvailableSpots != nil {
		lot.AvailableSpots = *req.AvailableSpots
	}
	created, err := h.Service.CreateLot(r.Context(), lot)
	if err != nil {
		apperrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *AdminHandler) DeleteLot(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.RemoveLot(r.Context(), mux.Vars(r)["id"]); err != nil {
		apperrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Lot removed"})
}

func (h *AdminHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	statuses, err := parseStatusFilter(r.URL.Query().Get("status"))
	if err != nil {
		apperrors.Write(w, err)
		return
	}
	bookings, err := h.Service.ListBookings(r.Context(), statuses...)
	if err != nil {
		apperrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.BookingsList{
		Total:    len(bookings),
		Bookings: toResponses(h.Service.Engine, bookings),
	})
}

func (h *AdminHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.Service.CancelBooking(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		apperrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(h.Service.Engine, booking))
}

func (h *AdminHandler) RunExpiry(w http.ResponseWriter, r *http.Request) {
	n, err := h.Service.RunExpiry(r.Context())
	if err != nil {
		apperrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ExpireResponse{Expired: n})
}

func (h *AdminHandler) SaveSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.SaveSnapshot(r.Context()); err != nil {
		apperrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Snapshot saved"})
}
