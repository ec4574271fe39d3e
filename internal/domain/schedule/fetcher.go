package schedule

import (
	"context"
	"time"
)

// RawDeliveryResponse is the external fetch capability's output: an ordered
// sequence of date-like strings plus a success indicator. Consumed once per
// fetch.
type RawDeliveryResponse struct {
	Success  bool
	RawDates []string
}

// Fetcher is the external fetch capability. Any transport-level outcome that
// is not a well-formed success (timeout, HTTP error status, malformed
// payload) is reported as an error; the coordinator treats all of them
// uniformly as a failure.
type Fetcher interface {
	Fetch(ctx context.Context, postalCode PostalCode) (RawDeliveryResponse, error)
}

// Seed is precomputed data supplied at track() time, obtained during a
// separate validation step, so tracking does not trigger a redundant fetch
// immediately after the same data was just retrieved.
type Seed struct {
	RawDates  []string
	FetchedAt time.Time
}
