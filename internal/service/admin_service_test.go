package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartparking/internal/db"
	"smartparking/internal/repository"
)

func TestAdminServiceActsOnAnyOwner(t *testing.T) {
	engine, _ := newEngine(t, []db.ParkingLot{testLot("1", 5, 5)})
	admin := NewAdminService(engine, nil)
	ctx := context.Background()

	b, err := engine.CreateBooking(ctx, "1", 1, "someone@example.com")
	require.NoError(t, err)
	_, err = engine.CreateBooking(ctx, "1", 1, "other@example.com")
	require.NoError(t, err)

	all, err := admin.ListBookings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	cancelled, err := admin.CancelBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, db.StatusCancelled, cancelled.Status)

	active, err := admin.ListBookings(ctx, db.StatusActive)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestAdminServiceJobs(t *testing.T) {
	engine, clock := newEngine(t, []db.ParkingLot{testLot("1", 5, 5)})
	ctx := context.Background()

	// Without a job service, expiry still runs and snapshots are skipped.
	bare := NewAdminService(engine, nil)
	_, err := engine.CreateBooking(ctx, "1", 1, "")
	require.NoError(t, err)
	clock.Advance(time.Hour)
	n, err := bare.RunExpiry(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, bare.SaveSnapshot(ctx))

	store := repository.NewMemoryStore(repository.Snapshot{})
	admin := NewAdminService(engine, NewJobService(engine, store, nil))
	_, err = admin.CreateLot(ctx, testLot("2", 3, 3))
	require.NoError(t, err)
	require.NoError(t, admin.SaveSnapshot(ctx))

	snap, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Lots, 2)
	assert.Len(t, snap.Bookings, 1)

	require.NoError(t, admin.RemoveLot(ctx, "2"))
	_, err = engine.GetLot("2")
	assert.Error(t, err)
}
