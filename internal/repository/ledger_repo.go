package repository

import (
	"sort"
	"sync"
	"time"

	"smartparking/internal/db"
	apperrors "smartparking/internal/errors"
)

type ledgerEntry struct {
	booking db.Booking
	seq     uint64
}

// LedgerRepository owns every booking ever created. Bookings leave it only as
// copies, so status changes go through Transition.
type LedgerRepository struct {
	mu       sync.RWMutex
	bookings map[string]*ledgerEntry
	seq      uint64
}

func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{bookings: make(map[string]*ledgerEntry)}
}

// Insert stores b as active.
func (r *LedgerRepository) Insert(b db.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[b.ID]; ok {
		return apperrors.Newf(apperrors.DuplicateID, "booking %s already exists", b.ID)
	}
	b.Status = db.StatusActive
	b.ClosedAt = nil
	r.seq++
	r.bookings[b.ID] = &ledgerEntry{booking: b, seq: r.seq}
	return nil
}

func (r *LedgerRepository) Transition(id string, next db.BookingStatus, at time.Time) (db.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.bookings[id]
	if !ok {
		return db.Booking{}, apperrors.Newf(apperrors.NotFound, "booking %s", id)
	}
	if !e.booking.Status.CanTransitionTo(next) {
		return db.Booking{}, apperrors.Newf(apperrors.InvalidTransition, "booking %s is %s, cannot become %s", id, e.booking.Status, next)
	}
	closed := at
	e.booking.Status = next
	e.booking.UpdatedAt = at
	e.booking.ClosedAt = &closed
	return copyBooking(e.booking), nil
}

func (r *LedgerRepository) Find(id string) (db.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.bookings[id]
	if !ok {
		return db.Booking{}, apperrors.Newf(apperrors.NotFound, "booking %s", id)
	}
	return copyBooking(e.booking), nil
}

// ListByStatus returns bookings in any of statuses, newest first. No statuses
// means every booking.
func (r *LedgerRepository) ListByStatus(statuses ...db.BookingStatus) []db.Booking {
	return r.list(func(b *db.Booking) bool { return hasStatus(b.Status, statuses) })
}

func (r *LedgerRepository) ListByOwner(owner string, statuses ...db.BookingStatus) []db.Booking {
	return r.list(func(b *db.Booking) bool {
		return b.Owner == owner && hasStatus(b.Status, statuses)
	})
}

// DueForExpiry returns active bookings whose end time is not after now.
func (r *LedgerRepository) DueForExpiry(now time.Time) []db.Booking {
	return r.list(func(b *db.Booking) bool {
		return b.Status == db.StatusActive && !b.EndTime.After(now)
	})
}

// ActiveInLot returns the active bookings that hold a spot at lotID.
func (r *LedgerRepository) ActiveInLot(lotID string) []db.Booking {
	return r.list(func(b *db.Booking) bool {
		return b.LotID == lotID && b.Status == db.StatusActive
	})
}

// DueInLot is DueForExpiry restricted to one lot.
func (r *LedgerRepository) DueInLot(lotID string, now time.Time) []db.Booking {
	return r.list(func(b *db.Booking) bool {
		return b.LotID == lotID && b.Status == db.StatusActive && !b.EndTime.After(now)
	})
}

// Snapshot returns every booking in creation order.
func (r *LedgerRepository) Snapshot() []db.Booking {
	out := r.list(func(*db.Booking) bool { return true })
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Restore replaces the ledger with bookings, keeping their statuses. Creation
// order is rebuilt from CreatedAt.
func (r *LedgerRepository) Restore(bookings []db.Booking) error {
	sorted := make([]db.Booking, len(bookings))
	copy(sorted, bookings)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.Before(sorted[j].CreatedAt) })

	next := make(map[string]*ledgerEntry, len(sorted))
	var seq uint64
	for _, b := range sorted {
		if _, ok := next[b.ID]; ok {
			return apperrors.Newf(apperrors.DuplicateID, "booking %s already exists", b.ID)
		}
		if !b.Status.IsValid() {
			return apperrors.Newf(apperrors.InvalidTransition, "booking %s has unknown status %q", b.ID, b.Status)
		}
		seq++
		next[b.ID] = &ledgerEntry{booking: copyBooking(b), seq: seq}
	}

	r.mu.Lock()
	r.bookings = next
	r.seq = seq
	r.mu.Unlock()
	return nil
}

func (r *LedgerRepository) list(keep func(*db.Booking) bool) []db.Booking {
	r.mu.RLock()
	entries := make([]*ledgerEntry, 0, len(r.bookings))
	for _, e := range r.bookings {
		if keep(&e.booking) {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq > entries[j].seq })
	out := make([]db.Booking, len(entries))
	for i, e := range entries {
		out[i] = copyBooking(e.booking)
	}
	r.mu.RUnlock()
	return out
}

func hasStatus(s db.BookingStatus, statuses []db.BookingStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, want := range statuses {
		if s == want {
			return true
		}
	}
	return false
}

func copyBooking(b db.Booking) db.Booking {
	if b.ClosedAt != nil {
		t := *b.ClosedAt
		b.ClosedAt = &t
	}
	return b
}
