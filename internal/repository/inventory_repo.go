package repository

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"smartparking/internal/db"
	apperrors "smartparking/internal/errors"
	"smartparking/internal/utils"
)

type lotState struct {
	lot    db.ParkingLot
	prefix string
	inUse  map[int]struct{}
}

// InventoryRepository owns per-lot capacity and the set of spot labels held
// by active bookings. Every method leaves 0 <= available <= total.
type InventoryRepository struct {
	mu   sync.RWMutex
	lots map[string]*lotState
}

func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{lots: make(map[string]*lotState)}
}

func validateLot(lot db.ParkingLot) error {
	switch {
	case lot.ID == "":
		return apperrors.New(apperrors.InvalidLot, "lot id is required")
	case lot.Name == "":
		return apperrors.New(apperrors.InvalidLot, "lot name is required")
	case lot.TotalSpots < 0:
		return apperrors.New(apperrors.InvalidLot, "total spots cannot be negative")
	case lot.AvailableSpots < 0 || lot.AvailableSpots > lot.TotalSpots:
		return apperrors.Newf(apperrors.InvalidLot, "available spots must be between 0 and %d", lot.TotalSpots)
	case math.IsNaN(lot.HourlyRate) || math.IsInf(lot.HourlyRate, 0) || lot.HourlyRate <= 0:
		return apperrors.New(apperrors.InvalidLot, "hourly rate must be positive")
	}
	return nil
}

func (r *InventoryRepository) AddLot(lot db.ParkingLot) error {
	if err := validateLot(lot); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lots[lot.ID]; ok {
		return apperrors.Newf(apperrors.DuplicateID, "lot %s already exists", lot.ID)
	}
	r.lots[lot.ID] = newLotState(lot)
	return nil
}

func newLotState(lot db.ParkingLot) *lotState {
	return &lotState{
		lot:    lot,
		prefix: utils.SpotPrefix(lot),
		inUse:  make(map[int]struct{}),
	}
}

func (r *InventoryRepository) RemoveLot(lotID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lots[lotID]; !ok {
		return apperrors.Newf(apperrors.UnknownLot, "lot %s", lotID)
	}
	delete(r.lots, lotID)
	return nil
}

func (r *InventoryRepository) Lot(lotID string) (db.ParkingLot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.lots[lotID]
	if !ok {
		return db.ParkingLot{}, apperrors.Newf(apperrors.UnknownLot, "lot %s", lotID)
	}
	return st.lot, nil
}

// ListLots returns every lot ordered by name.
func (r *InventoryRepository) ListLots() []db.ParkingLot {
	r.mu.RLock()
	out := make([]db.ParkingLot, 0, len(r.lots))
	for _, st := range r.lots {
		out = append(out, st.lot)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Reserve takes one spot from the lot and mints the lowest unused label.
func (r *InventoryRepository) Reserve(lotID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.lots[lotID]
	if !ok {
		return "", apperrors.Newf(apperrors.UnknownLot, "lot %s", lotID)
	}
	if st.lot.AvailableSpots == 0 {
		return "", apperrors.Newf(apperrors.NoCapacity, "no spots available at %s", st.lot.Name)
	}
	for n := 1; n <= st.lot.TotalSpots; n++ {
		if _, taken := st.inUse[n]; taken {
			continue
		}
		st.inUse[n] = struct{}{}
		st.lot.AvailableSpots--
		return utils.SpotLabel(st.prefix, n), nil
	}
	return "", apperrors.Newf(apperrors.NoCapacity, "no free spot label at %s", st.lot.Name)
}

// Release gives a spot back. Repeated releases are not deduplicated here, but
// the count never exceeds the lot's total.
func (r *InventoryRepository) Release(lotID, label string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.lots[lotID]
	if !ok {
		return apperrors.Newf(apperrors.UnknownLot, "lot %s", lotID)
	}
	if n, ok := utils.SpotNumber(st.prefix, label); ok {
		delete(st.inUse, n)
	}
	if st.lot.AvailableSpots < st.lot.TotalSpots {
		st.lot.AvailableSpots++
	}
	return nil
}

func (r *InventoryRepository) Availability(lotID string) (available, total int, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.lots[lotID]
	if !ok {
		return 0, 0, apperrors.Newf(apperrors.UnknownLot, "lot %s", lotID)
	}
	return st.lot.AvailableSpots, st.lot.TotalSpots, nil
}

// LotSet is a full replacement inventory. It is built and checked apart from
// the live repository and installed with Replace.
type LotSet struct {
	lots map[string]*lotState
}

// NewLotSet validates every lot; on error nothing has been installed anywhere.
func NewLotSet(lots []db.ParkingLot) (*LotSet, error) {
	set := &LotSet{lots: make(map[string]*lotState, len(lots))}
	for _, lot := range lots {
		if err := validateLot(lot); err != nil {
			return nil, fmt.Errorf("lot %q: %w", lot.ID, err)
		}
		if _, ok := set.lots[lot.ID]; ok {
			return nil, apperrors.Newf(apperrors.DuplicateID, "lot %s appears twice", lot.ID)
		}
		set.lots[lot.ID] = newLotState(lot)
	}
	return set, nil
}

// MarkInUse records a label held by a restored active booking without
// touching the available count.
func (s *LotSet) MarkInUse(lotID, label string) error {
	st, ok := s.lots[lotID]
	if !ok {
		return apperrors.Newf(apperrors.UnknownLot, "lot %s", lotID)
	}
	if n, ok := utils.SpotNumber(st.prefix, label); ok && n <= st.lot.TotalSpots {
		st.inUse[n] = struct{}{}
	}
	return nil
}

// Replace swaps the whole inventory for set in one step. set must not be used
// afterwards.
func (r *InventoryRepository) Replace(set *LotSet) {
	r.mu.Lock()
	r.lots = set.lots
	r.mu.Unlock()
}
