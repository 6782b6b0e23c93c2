package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"smartparking/internal/db"
)

const schema = `
CREATE TABLE IF NOT EXISTS parking_lots (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	address         TEXT NOT NULL,
	total_spots     INTEGER NOT NULL,
	available_spots INTEGER NOT NULL,
	hourly_rate     DOUBLE PRECISION NOT NULL
);
CREATE TABLE IF NOT EXISTS bookings (
	id             TEXT PRIMARY KEY,
	lot_id         TEXT NOT NULL,
	owner          TEXT NOT NULL DEFAULT '',
	spot_label     TEXT NOT NULL,
	start_time     TIMESTAMPTZ NOT NULL,
	end_time       TIMESTAMPTZ NOT NULL,
	duration_hours INTEGER NOT NULL,
	amount         DOUBLE PRECISION NOT NULL,
	status         TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL,
	closed_at      TIMESTAMPTZ
);`

// PostgresStore saves snapshots into two tables. Bookings are never deleted;
// lots missing from a snapshot are.
type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{DB: db}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("error creating schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) LoadAll(ctx context.Context) (Snapshot, error) {
	var snap Snapshot

	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, name, address, total_spots, available_spots, hourly_rate FROM parking_lots ORDER BY id`)
	if err != nil {
		return snap, fmt.Errorf("error querying parking lots: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var lot db.ParkingLot
		if err := rows.Scan(&lot.ID, &lot.Name, &lot.Address, &lot.TotalSpots, &lot.AvailableSpots, &lot.HourlyRate); err != nil {
			return snap, fmt.Errorf("error scanning parking lot: %w", err)
		}
		snap.Lots = append(snap.Lots, lot)
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("error after iterating parking lots: %w", err)
	}

	brows, err := s.DB.QueryContext(ctx, `
		SELECT id, lot_id, owner, spot_label, start_time, end_time, duration_hours,
		       amount, status, created_at, updated_at, closed_at
		FROM bookings ORDER BY created_at`)
	if err != nil {
		return snap, fmt.Errorf("error querying bookings: %w", err)
	}
	defer brows.Close()
	for brows.Next() {
		var (
			b      db.Booking
			status string
			closed sql.NullTime
		)
		err := brows.Scan(&b.ID, &b.LotID, &b.Owner, &b.SpotLabel, &b.StartTime, &b.EndTime, &b.DurationHours,
			&b.Amount, &status, &b.CreatedAt, &b.UpdatedAt, &closed)
		if err != nil {
			return snap, fmt.Errorf("error scanning booking: %w", err)
		}
		b.Status = db.BookingStatus(status)
		if closed.Valid {
			t := closed.Time
			b.ClosedAt = &t
		}
		snap.Bookings = append(snap.Bookings, b)
	}
	if err := brows.Err(); err != nil {
		return snap, fmt.Errorf("error after iterating bookings: %w", err)
	}
	return snap, nil
}

// SaveAll upserts the snapshot in a single transaction.
func (s *PostgresStore) SaveAll(ctx context.Context, snap Snapshot) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	ids := make([]string, 0, len(snap.Lots))
	for _, lot := range snap.Lots {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO parking_lots (id, name, address, total_spots, available_spots, hourly_rate)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, address = EXCLUDED.address, total_spots = EXCLUDED.total_spots,
				available_spots = EXCLUDED.available_spots, hourly_rate = EXCLUDED.hourly_rate`,
			lot.ID, lot.Name, lot.Address, lot.TotalSpots, lot.AvailableSpots, lot.HourlyRate)
		if err != nil {
			return fmt.Errorf("error saving parking lot %s: %w", lot.ID, err)
		}
		ids = append(ids, lot.ID)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM parking_lots WHERE id <> ALL($1)`, pq.Array(ids)); err != nil {
		return fmt.Errorf("error removing stale parking lots: %w", err)
	}

	for _, b := range snap.Bookings {
		var closed sql.NullTime
		if b.ClosedAt != nil {
			closed = sql.NullTime{Time: *b.ClosedAt, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO bookings (id, lot_id, owner, spot_label, start_time, end_time, duration_hours,
			                      amount, status, created_at, updated_at, closed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (id) DO UPDATE SET
				status = EXCLUDED.status, updated_at = EXCLUDED.updated_at, closed_at = EXCLUDED.closed_at`,
			b.ID, b.LotID, b.Owner, b.SpotLabel, b.StartTime, b.EndTime, b.DurationHours,
			b.Amount, string(b.Status), b.CreatedAt, b.UpdatedAt, closed)
		if err != nil {
			return fmt.Errorf("error saving booking %s: %w", b.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing snapshot: %w", err)
	}
	return nil
}
