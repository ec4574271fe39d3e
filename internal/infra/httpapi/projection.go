package httpapi

import (
	"time"

	"posti_delivery_tracker/internal/app"
)

// stateNoUpcoming is the published state for a snapshot whose dates are all
// in the past (or absent).
const stateNoUpcoming = "no upcoming delivery"

// stateUnknown is published while no fetch has ever succeeded.
const stateUnknown = "unknown"

// scheduleResponse is the read-only projection of a coordinator's snapshot
// served to presentation-layer consumers.
type scheduleResponse struct {
	PostalCode         string   `json:"postal_code"`
	State              string   `json:"state"`
	NextScheduledDate  *string  `json:"next_scheduled_date"`
	LastScheduledDate  *string  `json:"last_scheduled_date"`
	DaysUntilNext      *int     `json:"days_until_next"`
	DeliveryCount      int      `json:"delivery_count"`
	AllDeliveryDates   []string `json:"all_delivery_dates"`
	LastUpdated        *string  `json:"last_updated"`
	LastFetchSucceeded bool     `json:"last_fetch_succeeded"`
	Available          bool     `json:"available"`
}

func projectCoordinator(coordinator *app.DeliveryCoordinator) scheduleResponse {
	out := scheduleResponse{
		PostalCode:         coordinator.PostalCode().String(),
		State:              stateUnknown,
		AllDeliveryDates:   []string{},
		LastFetchSucceeded: coordinator.LastFetchSucceeded(),
		Available:          coordinator.HasData(),
	}

	snap, ok := coordinator.Snapshot()
	if !ok {
		return out
	}

	out.State = stateNoUpcoming
	if snap.NextScheduled != nil {
		next := snap.NextScheduled.String()
		out.State = next
		out.NextScheduledDate = &next
	}
	if snap.LastScheduled != nil {
		last := snap.LastScheduled.String()
		out.LastScheduledDate = &last
	}
	if snap.DaysUntilNext != nil {
		days := *snap.DaysUntilNext
		out.DaysUntilNext = &days
	}
	out.DeliveryCount = snap.DeliveryCount()
	for _, d := range snap.AllDates {
		out.AllDeliveryDates = append(out.AllDeliveryDates, d.String())
	}
	lastUpdated := snap.FetchedAt.Format(time.RFC3339)
	out.LastUpdated = &lastUpdated

	return out
}
