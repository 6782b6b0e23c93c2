package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"smartparking/internal/db"
	apperrors "smartparking/internal/errors"
	"smartparking/internal/repository"
	"smartparking/internal/syncbus"
	"smartparking/internal/utils"
)

// AllowedDurations lists the booking lengths, in hours, a lot can be reserved for.
var AllowedDurations = []int{1, 2, 3, 4, 5, 6, 8, 12, 24}

func IsAllowedDuration(hours int) bool {
	for _, d := range AllowedDurations {
		if d == hours {
			return true
		}
	}
	return false
}

// lotLocks hands out one mutex per lot. Capacity changes of a lot and status
// changes of its bookings happen while holding it.
type lotLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *lotLocks) get(lotID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	m, ok := l.locks[lotID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[lotID] = m
	}
	return m
}

type Option func(*ReservationService)

func WithClock(now func() time.Time) Option {
	return func(s *ReservationService) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *ReservationService) { s.newID = newID }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *ReservationService) { s.logger = logger }
}

// ReservationService keeps the inventory and the ledger consistent with each
// other. Each operation is atomic across both: callers never observe a taken
// spot without its booking or a closed booking still holding its spot.
type ReservationService struct {
	Inventory *repository.InventoryRepository
	Ledger    *repository.LedgerRepository
	Bus       *syncbus.Bus

	// stateMu is held shared by every operation and exclusively by
	// Snapshot and Restore.
	stateMu sync.RWMutex
	locks   lotLocks

	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

func NewReservationService(inv *repository.InventoryRepository, ledger *repository.LedgerRepository, bus *syncbus.Bus, opts ...Option) *ReservationService {
	s := &ReservationService{
		Inventory: inv,
		Ledger:    ledger,
		Bus:       bus,
		logger:    zap.NewNop(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

func (s *ReservationService) Now() time.Time { return s.now().UTC() }

// withLot runs fn while holding the lot's lock.
func (s *ReservationService) withLot(lotID string, fn func() error) error {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	m := s.locks.get(lotID)
	m.Lock()
	defer m.Unlock()
	return fn()
}

// withCurrentLot is withLot preceded by completing the lot's elapsed
// bookings, so fn never sees a spot still held past its end time.
func (s *ReservationService) withCurrentLot(lotID string, fn func(now time.Time) error) error {
	now := s.Now()
	expired := 0
	err := s.withLot(lotID, func() error {
		expired = s.expireLotLocked(lotID, now)
		return fn(now)
	})
	s.reportExpired(expired, now)
	return err
}

// expireLotLocked completes the lot's due bookings. The caller holds the lot lock.
func (s *ReservationService) expireLotLocked(lotID string, now time.Time) int {
	expired := 0
	for _, due := range s.Ledger.DueInLot(lotID, now) {
		b, err := s.Ledger.Transition(due.ID, db.StatusCompleted, now)
		if err != nil {
			continue
		}
		s.releaseSpot(b, "expire")
		expired++
	}
	return expired
}

func (s *ReservationService) reportExpired(n int, now time.Time) {
	if n == 0 {
		return
	}
	s.logger.Info("bookings_expired", zap.Int("count", n), zap.Time("now", now))
	s.publish(syncbus.BookingsExpired, "", "")
}

func (s *ReservationService) publish(kind syncbus.EventKind, lotID, bookingID string) {
	if s.Bus == nil {
		return
	}
	s.Bus.Publish(syncbus.Event{Kind: kind, LotID: lotID, BookingID: bookingID, At: s.Now()})
}

// CreateBooking reserves a spot at lotID for hours and records an active
// booking for owner. A cancelled ctx is only honoured before the spot is
// taken; once reserved the booking is either fully written or fully undone.
func (s *ReservationService) CreateBooking(ctx context.Context, lotID string, hours int, owner string) (db.Booking, error) {
	if !IsAllowedDuration(hours) {
		return db.Booking{}, apperrors.Newf(apperrors.InvalidDuration, "%d hours is not an allowed duration", hours)
	}
	if err := ctx.Err(); err != nil {
		return db.Booking{}, err
	}

	var booking db.Booking
	err := s.withCurrentLot(lotID, func(now time.Time) error {
		lot, err := s.Inventory.Lot(lotID)
		if err != nil {
			return err
		}
		label, err := s.Inventory.Reserve(lotID)
		if err != nil {
			return err
		}

		b := db.Booking{
			ID:            s.newID(),
			LotID:         lotID,
			Owner:         owner,
			SpotLabel:     label,
			StartTime:     now,
			EndTime:       now.Add(time.Duration(hours) * time.Hour),
			DurationHours: hours,
			Amount:        lot.HourlyRate * float64(hours),
			Status:        db.StatusActive,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.Ledger.Insert(b); err != nil {
			if rerr := s.Inventory.Release(lotID, label); rerr != nil {
				s.logger.Error("reserve_rollback_failed",
					zap.String("lot_id", lotID), zap.String("spot", label), zap.Error(rerr))
			}
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		s.logger.Info("booking_rejected", zap.String("lot_id", lotID), zap.Int("hours", hours), zap.Error(err))
		return db.Booking{}, err
	}

	s.logger.Info("booking_created",
		zap.String("booking_id", booking.ID),
		zap.String("lot_id", lotID),
		zap.String("spot", booking.SpotLabel),
		zap.Float64("amount", booking.Amount))
	s.publish(syncbus.BookingCreated, lotID, booking.ID)
	return booking, nil
}

// CancelBooking closes an active booking and gives its spot back. A non-empty
// owner restricts the call to that owner's bookings. If the spot cannot be
// released the cancellation still stands and the inconsistency is logged.
func (s *ReservationService) CancelBooking(ctx context.Context, bookingID, owner string) (db.Booking, error) {
	if err := ctx.Err(); err != nil {
		return db.Booking{}, err
	}
	current, err := s.GetBooking(bookingID, owner)
	if err != nil {
		return db.Booking{}, err
	}

	var cancelled db.Booking
	err = s.withLot(current.LotID, func() error {
		b, err := s.Ledger.Transition(bookingID, db.StatusCancelled, s.Now())
		if err != nil {
			return err
		}
		s.releaseSpot(b, "cancel")
		cancelled = b
		return nil
	})
	if err != nil {
		return db.Booking{}, err
	}

	s.logger.Info("booking_cancelled", zap.String("booking_id", bookingID), zap.String("lot_id", cancelled.LotID))
	s.publish(syncbus.BookingCancelled, cancelled.LotID, bookingID)
	return cancelled, nil
}

// ExpireBookings completes every active booking whose end time is not after
// now and releases its spot. Each lot is swept under its own lock, so
// repeated or concurrent sweeps release a spot at most once.
func (s *ReservationService) ExpireBookings(ctx context.Context, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var lotIDs []string
	seen := make(map[string]bool)
	for _, due := range s.Ledger.DueForExpiry(now) {
		if !seen[due.LotID] {
			seen[due.LotID] = true
			lotIDs = append(lotIDs, due.LotID)
		}
	}

	expired := 0
	var sweepErr error
	for _, lotID := range lotIDs {
		if err := ctx.Err(); err != nil {
			sweepErr = err
			break
		}
		s.withLot(lotID, func() error {
			expired += s.expireLotLocked(lotID, now)
			return nil
		})
	}
	s.reportExpired(expired, now)
	return expired, sweepErr
}

func (s *ReservationService) releaseSpot(b db.Booking, reason string) {
	if err := s.Inventory.Release(b.LotID, b.SpotLabel); err != nil {
		s.logger.Warn("spot_release_failed",
			zap.String("reason", reason),
			zap.String("booking_id", b.ID),
			zap.String("lot_id", b.LotID),
			zap.String("spot", b.SpotLabel),
			zap.Error(err))
	}
}

// Availability reads a lot's counters under its lock.
func (s *ReservationService) Availability(lotID string) (available, total int, err error) {
	err = s.withCurrentLot(lotID, func(time.Time) error {
		available, total, err = s.Inventory.Availability(lotID)
		return err
	})
	return available, total, err
}

func (s *ReservationService) GetLot(lotID string) (db.ParkingLot, error) {
	var lot db.ParkingLot
	err := s.withCurrentLot(lotID, func(time.Time) error {
		var err error
		lot, err = s.Inventory.Lot(lotID)
		return err
	})
	return lot, err
}

// ListLots returns the lots matching query by name or address.
func (s *ReservationService) ListLots(query string) []db.ParkingLot {
	lots := utils.FilterLots(s.Inventory.ListLots(), query)
	out := make([]db.ParkingLot, 0, len(lots))
	for _, l := range lots {
		lot, err := s.GetLot(l.ID)
		if err != nil {
			continue
		}
		out = append(out, lot)
	}
	return out
}

// GetBooking finds a booking; with a non-empty owner, other owners' bookings
// are reported as not found.
func (s *ReservationService) GetBooking(bookingID, owner string) (db.Booking, error) {
	b, err := s.Ledger.Find(bookingID)
	if err != nil {
		return db.Booking{}, err
	}
	if owner != "" && b.Owner != owner {
		return db.Booking{}, apperrors.Newf(apperrors.NotFound, "booking %s", bookingID)
	}
	if b.Status != db.StatusActive || b.EndTime.After(s.Now()) {
		return b, nil
	}
	err = s.withCurrentLot(b.LotID, func(time.Time) error {
		b, err = s.Ledger.Find(bookingID)
		return err
	})
	return b, err
}

// ListBookings sweeps expired bookings first so readers never see an elapsed
// booking as active. An empty owner lists everyone's bookings.
func (s *ReservationService) ListBookings(ctx context.Context, owner string, statuses ...db.BookingStatus) ([]db.Booking, error) {
	if _, err := s.ExpireBookings(ctx, s.Now()); err != nil {
		return nil, err
	}
	if owner == "" {
		return s.Ledger.ListByStatus(statuses...), nil
	}
	return s.Ledger.ListByOwner(owner, statuses...), nil
}

func (s *ReservationService) RecentBookings(ctx context.Context, owner string, n int) ([]db.Booking, error) {
	bookings, err := s.ListBookings(ctx, owner)
	if err != nil {
		return nil, err
	}
	if n >= 0 && len(bookings) > n {
		bookings = bookings[:n]
	}
	return bookings, nil
}

func (s *ReservationService) Stats(ctx context.Context, owner string) (Stats, error) {
	bookings, err := s.ListBookings(ctx, owner)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(bookings), nil
}

func (s *ReservationService) AddLot(ctx context.Context, lot db.ParkingLot) (db.ParkingLot, error) {
	if err := ctx.Err(); err != nil {
		return db.ParkingLot{}, err
	}
	if lot.ID == "" {
		lot.ID = s.newID()
	}
	err := s.withLot(lot.ID, func() error {
		if held := len(s.Ledger.ActiveInLot(lot.ID)); held > 0 {
			return apperrors.Newf(apperrors.InvalidTransition, "lot id %s is still held by %d active bookings", lot.ID, held)
		}
		return s.Inventory.AddLot(lot)
	})
	if err != nil {
		return db.ParkingLot{}, err
	}
	s.logger.Info("lot_added", zap.String("lot_id", lot.ID), zap.Int("total_spots", lot.TotalSpots))
	s.publish(syncbus.LotChanged, lot.ID, "")
	return lot, nil
}

// RemoveLot deletes a lot with no active bookings. Its closed bookings stay
// in the ledger.
func (s *ReservationService) RemoveLot(ctx context.Context, lotID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.withCurrentLot(lotID, func(time.Time) error {
		if held := len(s.Ledger.ActiveInLot(lotID)); held > 0 {
			return apperrors.Newf(apperrors.InvalidTransition, "lot %s still has %d active bookings", lotID, held)
		}
		return s.Inventory.RemoveLot(lotID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("lot_removed", zap.String("lot_id", lotID))
	s.publish(syncbus.LotChanged, lotID, "")
	return nil
}

// Snapshot captures lots and bookings with no operation in flight.
func (s *ReservationService) Snapshot() repository.Snapshot {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return repository.Snapshot{
		Lots:     s.Inventory.ListLots(),
		Bookings: s.Ledger.Snapshot(),
	}
}

// Restore replaces the engine state with snap. Available counts are clamped
// so that every spot held by an active booking is counted as taken. The new
// state is fully validated first; on error the engine is left untouched.
func (s *ReservationService) Restore(snap repository.Snapshot) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	held := make(map[string]int)
	for _, b := range snap.Bookings {
		if b.Status == db.StatusActive {
			held[b.LotID]++
		}
	}

	lots := make([]db.ParkingLot, 0, len(snap.Lots))
	for _, lot := range snap.Lots {
		limit := lot.TotalSpots - held[lot.ID]
		if limit < 0 {
			limit = 0
		}
		clamped := lot.AvailableSpots
		if clamped > limit {
			clamped = limit
		}
		if clamped < 0 {
			clamped = 0
		}
		if clamped != lot.AvailableSpots {
			s.logger.Warn("restore_clamped_availability",
				zap.String("lot_id", lot.ID),
				zap.Int("stored", lot.AvailableSpots),
				zap.Int("restored", clamped))
			lot.AvailableSpots = clamped
		}
		lots = append(lots, lot)
	}
	set, err := repository.NewLotSet(lots)
	if err != nil {
		return fmt.Errorf("restoring lots: %w", err)
	}
	for _, b := range snap.Bookings {
		if b.Status != db.StatusActive {
			continue
		}
		if err := set.MarkInUse(b.LotID, b.SpotLabel); err != nil {
			s.logger.Warn("restore_orphan_booking", zap.String("booking_id", b.ID), zap.String("lot_id", b.LotID))
		}
	}

	if err := s.Ledger.Restore(snap.Bookings); err != nil {
		return fmt.Errorf("restoring bookings: %w", err)
	}
	s.Inventory.Replace(set)

	s.logger.Info("state_restored", zap.Int("lots", len(snap.Lots)), zap.Int("bookings", len(snap.Bookings)))
	s.publish(syncbus.Resync, "", "")
	return nil
}
