package database

import (
	"context"
	"database/sql"
	"fmt"

	"posti_delivery_tracker/internal/domain/schedule"

	"github.com/lib/pq"
)

// Custom errors
var ErrSnapshotNotFound = fmt.Errorf("stored snapshot not found")

// PostgresSnapshotStore persists the last known-good fetch result per postal
// code so a restarted tracker can serve data before its first live fetch.
// Implements schedule.SnapshotStore.
type PostgresSnapshotStore struct {
	db *sql.DB
}

func NewPostgresSnapshotStore(db *sql.DB) *PostgresSnapshotStore {
	return &PostgresSnapshotStore{db: db}
}

// EnsureSchema creates the snapshot table if it does not exist yet.
func (s *PostgresSnapshotStore) EnsureSchema(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS delivery_snapshots (
                postal_code TEXT PRIMARY KEY,
                delivery_dates TEXT[] NOT NULL,
                fetched_at TIMESTAMPTZ NOT NULL
              )`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("error creating delivery_snapshots table: %w", err)
	}
	return nil
}

// Save upserts the stored schedule for its postal code.
func (s *PostgresSnapshotStore) Save(ctx context.Context, stored schedule.StoredSchedule) error {
	query := `INSERT INTO delivery_snapshots (postal_code, delivery_dates, fetched_at)
               VALUES ($1, $2, $3)
               ON CONFLICT (postal_code)
               DO UPDATE SET delivery_dates = EXCLUDED.delivery_dates,
                             fetched_at = EXCLUDED.fetched_at`

	_, err := s.db.ExecContext(ctx, query,
		stored.PostalCode.String(), pq.Array(stored.RawDates), stored.FetchedAt)
	if err != nil {
		return fmt.Errorf("error saving snapshot for %s: %w", stored.PostalCode, err)
	}
	return nil
}

// Load returns the stored schedule for a postal code, or ErrSnapshotNotFound.
func (s *PostgresSnapshotStore) Load(ctx context.Context, postalCode schedule.PostalCode) (*schedule.StoredSchedule, error) {
	query := `SELECT delivery_dates, fetched_at FROM delivery_snapshots WHERE postal_code = $1`

	stored := &schedule.StoredSchedule{PostalCode: postalCode}
	err := s.db.QueryRowContext(ctx, query, postalCode.String()).
		Scan(pq.Array(&stored.RawDates), &stored.FetchedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("error loading snapshot for %s: %w", postalCode, err)
	}
	return stored, nil
}

// Delete removes the stored schedule for a postal code. Deleting a code that
// has no row is not an error.
func (s *PostgresSnapshotStore) Delete(ctx context.Context, postalCode schedule.PostalCode) error {
	query := `DELETE FROM delivery_snapshots WHERE postal_code = $1`
	if _, err := s.db.ExecContext(ctx, query, postalCode.String()); err != nil {
		return fmt.Errorf("error deleting snapshot for %s: %w", postalCode, err)
	}
	return nil
}
