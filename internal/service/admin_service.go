package service

import (
	"context"

	"smartparking/internal/db"
)

// AdminService groups the operator actions: lot management, unrestricted
// booking access and on-demand runs of the periodic jobs.
type AdminService struct {
	Engine *ReservationService
	jobs   *JobService
}

func NewAdminService(engine *ReservationService, jobs *JobService) *AdminService {
	return &AdminService{Engine: engine, jobs: jobs}
}

func (s *AdminService) ListBookings(ctx context.Context, statuses ...db.BookingStatus) ([]db.Booking, error) {
	return s.Engine.ListBookings(ctx, "", statuses...)
}

func (s *AdminService) CancelBooking(ctx context.Context, bookingID string) (db.Booking, error) {
	return s.Engine.CancelBooking(ctx, bookingID, "")
}

func (s *AdminService) CreateLot(ctx context.Context, lot db.ParkingLot) (db.ParkingLot, error) {
	return s.Engine.AddLot(ctx, lot)
}

func (s *AdminService) RemoveLot(ctx context.Context, lotID string) error {
	return s.Engine.RemoveLot(ctx, lotID)
}

func (s *AdminService) RunExpiry(ctx context.Context) (int, error) {
	if s.jobs == nil {
		return s.Engine.ExpireBookings(ctx, s.Engine.Now())
	}
	return s.jobs.RunExpiry(ctx)
}

// SaveSnapshot persists the current state now. Without a job service there
// is no store and this is a no-op.
func (s *AdminService) SaveSnapshot(ctx context.Context) error {
	if s.jobs == nil || s.jobs.Store == nil {
		return nil
	}
	return s.jobs.SaveSnapshot(ctx)
}
