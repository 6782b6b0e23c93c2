package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartparking/internal/db"
)

var lotColumns = []string{"id", "name", "address", "total_spots", "available_spots", "hourly_rate"}

var bookingColumns = []string{
	"id", "lot_id", "owner", "spot_label", "start_time", "end_time", "duration_hours",
	"amount", "status", "created_at", "updated_at", "closed_at",
}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewPostgresStore(conn), mock
}

func TestPostgresLoadAll(t *testing.T) {
	store, mock := newMockStore(t)
	closed := t0.Add(time.Hour)

	mock.ExpectQuery("SELECT id, name, address, total_spots, available_spots, hourly_rate FROM parking_lots").
		WillReturnRows(sqlmock.NewRows(lotColumns).
			AddRow("1", "MG Road Parking", "MG Road", 50, 15, 50.0))
	mock.ExpectQuery("FROM bookings").
		WillReturnRows(sqlmock.NewRows(bookingColumns).
			AddRow("b1", "1", "user@example.com", "MRP-1", t0, t0.Add(time.Hour), 1, 50.0, "completed", t0, closed, closed).
			AddRow("b2", "1", "", "MRP-2", t0, t0.Add(2*time.Hour), 2, 100.0, "active", t0, t0, nil))

	snap, err := store.LoadAll(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Lots, 1)
	assert.Equal(t, db.ParkingLot{ID: "1", Name: "MG Road Parking", Address: "MG Road", TotalSpots: 50, AvailableSpots: 15, HourlyRate: 50}, snap.Lots[0])

	require.Len(t, snap.Bookings, 2)
	assert.Equal(t, db.StatusCompleted, snap.Bookings[0].Status)
	require.NotNil(t, snap.Bookings[0].ClosedAt)
	assert.Equal(t, closed, *snap.Bookings[0].ClosedAt)
	assert.Nil(t, snap.Bookings[1].ClosedAt)
	assert.Equal(t, 2, snap.Bookings[1].DurationHours)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLoadAllQueryError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("FROM parking_lots").WillReturnError(errors.New("connection reset"))

	_, err := store.LoadAll(context.Background())
	assert.ErrorContains(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveAll(t *testing.T) {
	store, mock := newMockStore(t)
	b := booking("b1", "user@example.com", t0, 2)
	b.Status = db.StatusActive

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO parking_lots").
		WithArgs("1", "MG Road Parking", "MG Road", 50, 15, 50.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM parking_lots WHERE id <> ALL").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO bookings").
		WithArgs("b1", "a", "user@example.com", "AL-1", t0, t0.Add(2*time.Hour), 2, 20.0, "active", t0, t0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.SaveAll(context.Background(), Snapshot{
		Lots:     []db.ParkingLot{{ID: "1", Name: "MG Road Parking", Address: "MG Road", TotalSpots: 50, AvailableSpots: 15, HourlyRate: 50}},
		Bookings: []db.Booking{b},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveAllRollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO parking_lots").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.SaveAll(context.Background(), Snapshot{
		Lots: []db.ParkingLot{{ID: "1", Name: "Lot", TotalSpots: 1, AvailableSpots: 1, HourlyRate: 1}},
	})
	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS parking_lots").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
