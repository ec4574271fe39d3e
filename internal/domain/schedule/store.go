package schedule

import (
	"context"
	"time"
)

// StoredSchedule is the last known-good fetch result for a postal code, as
// kept by a SnapshotStore. Raw dates are stored, not derived fields, so the
// snapshot can be recomputed against the current day on load.
type StoredSchedule struct {
	PostalCode PostalCode
	RawDates   []string
	FetchedAt  time.Time
}

// SnapshotStore persists the last known-good fetch result per postal code so
// a restarted tracker can serve data before its first live fetch completes.
type SnapshotStore interface {
	Save(ctx context.Context, stored StoredSchedule) error
	Load(ctx context.Context, postalCode PostalCode) (*StoredSchedule, error)
	Delete(ctx context.Context, postalCode PostalCode) error
}
