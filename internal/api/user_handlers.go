package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"smartparking/internal/auth"
	"smartparking/internal/db"
	"smartparking/internal/entities"
	apperrors "smartparking/internal/errors"
	"smartparking/internal/service"
)

const recentBookingsLimit = 3

type UserHandler struct {
	Service  *service.ReservationService
	Receipts *service.ReceiptFormatter
}

func NewUserHandler(svc *service.ReservationService, receipts *service.ReceiptFormatter) *UserHandler {
	return &UserHandler{Service: svc, Receipts: receipts}
}

func owner(r *http.Request) string {
	id, _ := auth.IdentityFrom(r.Context())
	return id.Email
}

// parseStatusFilter maps the status query value to ledger statuses.
// "history" means every booking that is no longer active.
func parseStatusFilter(v string) ([]db.BookingStatus, error) {
	switch v {
	case "", "all":
		return nil, nil
	case "history":
		return []db.BookingStatus{db.StatusCompleted, db.StatusCancelled}, nil
	}
	s := db.BookingStatus(v)
	if !s.IsValid() {
		return nil, apperrors.ErrBadRequest("unknown status " + v)
	}
	return []db.BookingStatus{s}, nil
}

func toResponses(svc *service.ReservationService, bookings []db.Booking) []entities.BookingResponse {
	out := make([]entities.BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toResponse(svc, b))
	}
	return out
}

func toResponse(svc *service.ReservationService, b db.Booking) entities.BookingResponse {
	resp := entities.BookingResponse{Booking: b}
	if lot, err := svc.GetLot(b.LotID); err == nil {
		resp.LotName = lot.Name
		resp.LotAddress = lot.Address
	}
	return resp
}

func (h *UserHandler) ListLots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.ListLots(r.URL.Query().Get("q")))
}

func (h *UserHandler) GetLot(w http.ResponseWriter, r *http.Request) {
	lot, err := h.Service.GetLot(mux.Vars(r)["id"])
	if err != nil {
		apperrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lot)
}

func (h *UserHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	lotID := mux.Vars(r)["id"]
	available, total, err := h.Service.Availability(lotID)
	if err != nil {
		apperrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.AvailabilityResponse{
		LotID:          lotID,
		AvailableSpots: available,
		TotalSpots:     total,
		IsAvailable:    available > 0,
	})
}

func (h *UserHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := decode(r, &req); err != nil {
		apperrors.Write(w, err)
		return
	}
	booking, err := h.Service.CreateBooking(r.Context(), req.LotID, req.Duration, owner(r))
	if err != nil {
		apperrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResponse(h.Service, booking))
}

func (h *UserHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	statuses, err := parseStatusFilter(r.URL.Query().Get("status"))
	if err != nil {
		apperrors.Write(w, err)
		return
	}
	bookings, err := h.Service.ListBookings(r.Context(), owner(r), statuses...)
	if err != nil {
		apperrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.BookingsList{
		Total:    len(bookings),
		Bookings: toResponses(h.Service, bookings),
	})
}

func (h *UserHandler) RecentBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.Service.RecentBookings(r.Context(), owner(r), recentBookingsLimit)
	if err != nil {
		apperrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.BookingsList{
		Total:    len(bookings),
		Bookings: toResponses(h.Service, bookings),
	})
}

func (h *UserHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.Service.GetBooking(mux.Vars(r)["id"], owner(r))
	if err != nil {
		apperrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(h.Service, booking))
}

func (h *UserHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.Service.CancelBooking(r.Context(), mux.Vars(r)["id"], owner(r))
	if err != nil {
		apperrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(h.Service, booking))
}

// DownloadReceipt serves the text ticket. Cancelled bookings have none.
func (h *UserHandler) DownloadReceipt(w http.ResponseWriter, r *http.Request) {
	booking, err := h.Service.GetBooking(mux.Vars(r)["id"], owner(r))
	if err != nil {
		apperrors.Write(w, err)
		return
	}
	if booking.Status == db.StatusCancelled {
		apperrors.Write(w, apperrors.New(apperrors.InvalidTransition, "cancelled bookings have no receipt"))
		return
	}
	lot, err := h.Service.GetLot(booking.LotID)
	if err != nil {
		lot = db.ParkingLot{ID: booking.LotID}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+service.ReceiptFileName(booking)+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(h.Receipts.Format(booking, lot))
}

func (h *UserHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Stats(r.Context(), owner(r))
	if err != nil {
		apperrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
