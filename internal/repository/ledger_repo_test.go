package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartparking/internal/db"
	apperrors "smartparking/internal/errors"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func booking(id, owner string, start time.Time, hours int) db.Booking {
	return db.Booking{
		ID:            id,
		LotID:         "a",
		Owner:         owner,
		SpotLabel:     "AL-1",
		StartTime:     start,
		EndTime:       start.Add(time.Duration(hours) * time.Hour),
		DurationHours: hours,
		Amount:        float64(10 * hours),
		CreatedAt:     start,
		UpdatedAt:     start,
	}
}

func bookingIDs(bs []db.Booking) []string {
	out := []string{}
	for _, b := range bs {
		out = append(out, b.ID)
	}
	return out
}

func TestInsertForcesActiveAndRejectsDuplicates(t *testing.T) {
	l := NewLedgerRepository()
	b := booking("b1", "u", t0, 1)
	b.Status = db.StatusCompleted

	require.NoError(t, l.Insert(b))
	got, err := l.Find("b1")
	require.NoError(t, err)
	assert.Equal(t, db.StatusActive, got.Status)

	assert.True(t, errors.Is(l.Insert(b), apperrors.ErrDuplicateID))
}

func TestTransitionRules(t *testing.T) {
	l := NewLedgerRepository()
	require.NoError(t, l.Insert(booking("b1", "u", t0, 1)))

	_, err := l.Transition("missing", db.StatusCancelled, t0)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	_, err = l.Transition("b1", db.StatusActive, t0)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))

	closedAt := t0.Add(30 * time.Minute)
	got, err := l.Transition("b1", db.StatusCancelled, closedAt)
	require.NoError(t, err)
	assert.Equal(t, db.StatusCancelled, got.Status)
	require.NotNil(t, got.ClosedAt)
	assert.Equal(t, closedAt, *got.ClosedAt)

	_, err = l.Transition("b1", db.StatusCompleted, closedAt)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))
	_, err = l.Transition("b1", db.StatusCancelled, closedAt)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))
}

func TestFindReturnsCopy(t *testing.T) {
	l := NewLedgerRepository()
	require.NoError(t, l.Insert(booking("b1", "u", t0, 1)))
	_, err := l.Transition("b1", db.StatusCompleted, t0)
	require.NoError(t, err)

	got, _ := l.Find("b1")
	got.Status = db.StatusActive
	*got.ClosedAt = time.Time{}

	again, _ := l.Find("b1")
	assert.Equal(t, db.StatusCompleted, again.Status)
	assert.Equal(t, t0, *again.ClosedAt)
}

func TestListsAreNewestFirst(t *testing.T) {
	l := NewLedgerRepository()
	require.NoError(t, l.Insert(booking("b1", "alice", t0, 1)))
	require.NoError(t, l.Insert(booking("b2", "bob", t0, 1)))
	require.NoError(t, l.Insert(booking("b3", "alice", t0, 1)))
	_, err := l.Transition("b2", db.StatusCancelled, t0)
	require.NoError(t, err)

	assert.Equal(t, []string{"b3", "b2", "b1"}, bookingIDs(l.ListByStatus()))
	assert.Equal(t, []string{"b3", "b1"}, bookingIDs(l.ListByStatus(db.StatusActive)))
	assert.Equal(t, []string{"b2"}, bookingIDs(l.ListByStatus(db.StatusCompleted, db.StatusCancelled)))
	assert.Equal(t, []string{"b3", "b1"}, bookingIDs(l.ListByOwner("alice")))
	assert.Empty(t, bookingIDs(l.ListByOwner("bob", db.StatusActive)))
	assert.Equal(t, []string{"b1", "b2", "b3"}, bookingIDs(l.Snapshot()))
}

func TestDueForExpiryIncludesBoundary(t *testing.T) {
	l := NewLedgerRepository()
	require.NoError(t, l.Insert(booking("short", "u", t0, 1)))
	require.NoError(t, l.Insert(booking("long", "u", t0, 4)))

	assert.Empty(t, l.DueForExpiry(t0.Add(59*time.Minute)))

	due := l.DueForExpiry(t0.Add(time.Hour))
	require.Len(t, due, 1)
	assert.Equal(t, "short", due[0].ID)
}

func TestPerLotQueries(t *testing.T) {
	l := NewLedgerRepository()
	require.NoError(t, l.Insert(booking("a1", "u", t0, 1)))
	require.NoError(t, l.Insert(booking("a2", "u", t0, 4)))
	other := booking("b1", "u", t0, 1)
	other.LotID = "b"
	require.NoError(t, l.Insert(other))
	_, err := l.Transition("a2", db.StatusCancelled, t0)
	require.NoError(t, err)

	assert.Equal(t, []string{"a1"}, bookingIDs(l.ActiveInLot("a")))
	assert.Equal(t, []string{"b1"}, bookingIDs(l.ActiveInLot("b")))
	assert.Empty(t, l.ActiveInLot("c"))

	assert.Empty(t, l.DueInLot("a", t0.Add(30*time.Minute)))
	assert.Equal(t, []string{"a1"}, bookingIDs(l.DueInLot("a", t0.Add(time.Hour))))
	assert.Equal(t, []string{"b1"}, bookingIDs(l.DueInLot("b", t0.Add(time.Hour))))
}

func TestRestoreKeepsStatusesAndOrder(t *testing.T) {
	l := NewLedgerRepository()
	older := booking("old", "u", t0, 1)
	older.Status = db.StatusCompleted
	newer := booking("new", "u", t0.Add(time.Hour), 1)
	newer.Status = db.StatusActive

	require.NoError(t, l.Restore([]db.Booking{newer, older}))
	list := l.ListByStatus()
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, db.StatusCompleted, list[1].Status)

	require.NoError(t, l.Insert(booking("next", "u", t0, 1)))
	assert.Equal(t, "next", l.ListByStatus()[0].ID)

	bad := booking("x", "u", t0, 1)
	bad.Status = "parked"
	assert.Error(t, l.Restore([]db.Booking{bad}))
	assert.True(t, errors.Is(l.Restore([]db.Booking{older, older}), apperrors.ErrDuplicateID))
}
