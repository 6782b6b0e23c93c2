package repository

import (
	"context"
	"sync"

	"smartparking/internal/db"
)

// Snapshot is the full engine state handed to and from durable storage.
type Snapshot struct {
	Lots     []db.ParkingLot
	Bookings []db.Booking
}

// Store persists engine state between restarts.
type Store interface {
	LoadAll(ctx context.Context) (Snapshot, error)
	SaveAll(ctx context.Context, snap Snapshot) error
}

// MemoryStore keeps the last saved snapshot in process. It is the store used
// when no database is configured.
type MemoryStore struct {
	mu   sync.Mutex
	snap Snapshot
}

func NewMemoryStore(initial Snapshot) *MemoryStore {
	return &MemoryStore{snap: cloneSnapshot(initial)}
}

func (s *MemoryStore) LoadAll(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSnapshot(s.snap), nil
}

func (s *MemoryStore) SaveAll(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.snap = cloneSnapshot(snap)
	s.mu.Unlock()
	return nil
}

func cloneSnapshot(s Snapshot) Snapshot {
	out := Snapshot{
		Lots:     make([]db.ParkingLot, len(s.Lots)),
		Bookings: make([]db.Booking, len(s.Bookings)),
	}
	copy(out.Lots, s.Lots)
	for i, b := range s.Bookings {
		out.Bookings[i] = copyBooking(b)
	}
	return out
}
