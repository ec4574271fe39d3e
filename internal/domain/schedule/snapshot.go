package schedule

import "time"

// Snapshot is an immutable computed view of a set of delivery dates as of a
// reference "now". It is recomputed wholesale on every successful fetch and
// never mutated incrementally.
type Snapshot struct {
	// AllDates is everything the API returned, in original order, including
	// duplicates and past dates. It is never filtered.
	AllDates []DeliveryDate

	// NextScheduled is the earliest date strictly after the reference date,
	// nil when no such date exists.
	NextScheduled *DeliveryDate

	// LastScheduled is the latest date strictly before the reference date,
	// nil when no such date exists.
	LastScheduled *DeliveryDate

	// DaysUntilNext is the whole-day distance to NextScheduled, nil when
	// NextScheduled is nil.
	DaysUntilNext *int

	// FetchedAt is the instant of the fetch that produced this snapshot.
	FetchedAt time.Time
}

// DeliveryCount reports how many dates the API returned, duplicates included.
func (s Snapshot) DeliveryCount() int {
	return len(s.AllDates)
}

// Compute derives a Snapshot from a set of delivery dates. Pure function.
//
// A date equal to now is treated as neither past nor next: today's delivery
// must not reappear as "next" after it has already been recorded.
func Compute(dates []DeliveryDate, now DeliveryDate, fetchedAt time.Time) Snapshot {
	snap := Snapshot{
		AllDates:  dates,
		FetchedAt: fetchedAt,
	}

	for _, d := range dates {
		switch {
		case d.After(now):
			if snap.NextScheduled == nil || d.Before(*snap.NextScheduled) {
				d := d
				snap.NextScheduled = &d
			}
		case d.Before(now):
			if snap.LastScheduled == nil || d.After(*snap.LastScheduled) {
				d := d
				snap.LastScheduled = &d
			}
		}
	}

	if snap.NextScheduled != nil {
		days := snap.NextScheduled.DaysUntil(now)
		snap.DaysUntilNext = &days
	}

	return snap
}
