package app

import (
	"context"
	"sync"
	"time"

	"posti_delivery_tracker/internal/domain/schedule"

	"github.com/sirupsen/logrus"
)

const storeSaveTimeout = 5 * time.Second

// UpdateListener is called whenever a coordinator's snapshot or freshness may
// have changed, so dependent consumers can refresh without polling.
type UpdateListener func(postalCode schedule.PostalCode)

// DeliveryCoordinator orchestrates fetch -> parse -> snapshot -> publish for
// one postal code. It owns the resilience policy: on any fetch failure the
// last known-good snapshot is retained and only the freshness flag drops, so
// consumers never see a spurious "no data" state.
//
// The fetch cycle runs on a single goroutine per coordinator; no two fetches
// for the same postal code are ever in flight at once. Snapshot reads never
// block on network activity.
type DeliveryCoordinator struct {
	postalCode schedule.PostalCode
	fetcher    schedule.Fetcher
	policy     *FetchPolicy
	store      schedule.SnapshotStore // optional, may be nil
	logger     *logrus.Entry
	now        func() time.Time

	cancel context.CancelFunc
	done   chan struct{}

	mu                 sync.RWMutex
	snapshot           *schedule.Snapshot
	lastFetchSucceeded bool
	nextFetchAt        time.Time
	listeners          []UpdateListener
}

// NewDeliveryCoordinator builds a coordinator. It does nothing until Start is
// called. store may be nil when warm-start persistence is disabled.
func NewDeliveryCoordinator(
	postalCode schedule.PostalCode,
	fetcher schedule.Fetcher,
	policy *FetchPolicy,
	store schedule.SnapshotStore,
	log *logrus.Entry,
) *DeliveryCoordinator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &DeliveryCoordinator{
		postalCode: postalCode,
		fetcher:    fetcher,
		policy:     policy,
		store:      store,
		logger:     log.WithField("postal_code", postalCode.String()),
		now:        time.Now,
		done:       make(chan struct{}),
	}
}

// Start begins the fetch cycle. With a seed, the seeded data is installed as
// the current snapshot and the first network fetch happens only at the first
// scheduled tick; without one, the first fetch happens immediately.
func (c *DeliveryCoordinator) Start(seed *schedule.Seed) {
	seeded := seed != nil
	if seeded {
		c.installSeed(*seed)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.run(ctx, seeded)
}

// Stop cancels the pending scheduled fetch. It does not wait for an in-flight
// fetch; a fetch that resolves after Stop is discarded.
func (c *DeliveryCoordinator) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

// Done is closed once the fetch cycle goroutine has exited.
func (c *DeliveryCoordinator) Done() <-chan struct{} {
	return c.done
}

func (c *DeliveryCoordinator) PostalCode() schedule.PostalCode {
	return c.postalCode
}

// Snapshot returns the latest successfully computed snapshot. ok is false
// only when no fetch has ever succeeded and no seed was installed.
func (c *DeliveryCoordinator) Snapshot() (schedule.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snapshot == nil {
		return schedule.Snapshot{}, false
	}
	return *c.snapshot, true
}

// HasData reports whether at least one successful fetch (or seed) has ever
// produced a snapshot, independent of whether the most recent attempt
// succeeded. Consecutive failures after an initial success keep it true.
func (c *DeliveryCoordinator) HasData() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot != nil
}

// LastFetchSucceeded reports whether the most recent attempt succeeded.
func (c *DeliveryCoordinator) LastFetchSucceeded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastFetchSucceeded
}

// NextFetchAt returns the scheduled instant of the next fetch attempt.
func (c *DeliveryCoordinator) NextFetchAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nextFetchAt
}

// AddListener registers an update listener. Listeners are invoked after every
// resolved fetch attempt (success or failure) and after Recompute.
func (c *DeliveryCoordinator) AddListener(l UpdateListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Recompute re-derives next/last/days-until from AllDates against a new
// reference day, keeping FetchedAt. Used at the midnight rollover, when a
// previously-future date may have slipped into the past without any fetch.
func (c *DeliveryCoordinator) Recompute(now time.Time) {
	c.mu.Lock()
	if c.snapshot == nil {
		c.mu.Unlock()
		return
	}
	snap := schedule.Compute(c.snapshot.AllDates, schedule.DateOf(now), c.snapshot.FetchedAt)
	c.snapshot = &snap
	c.mu.Unlock()

	c.logger.Debug("Recomputed snapshot for date rollover")
	c.notifyListeners()
}

func (c *DeliveryCoordinator) installSeed(seed schedule.Seed) {
	dates := schedule.ParseDeliveryDates(seed.RawDates, c.logger)
	snap := schedule.Compute(dates, schedule.DateOf(c.now()), seed.FetchedAt)

	c.mu.Lock()
	c.snapshot = &snap
	c.lastFetchSucceeded = true
	c.mu.Unlock()

	c.logger.WithField("delivery_count", snap.DeliveryCount()).
		Debug("Coordinator seeded with validated data, skipping first fetch")
}

func (c *DeliveryCoordinator) run(ctx context.Context, seeded bool) {
	defer close(c.done)

	if !seeded {
		c.refresh(ctx)
		if ctx.Err() != nil {
			return
		}
	}

	first := true
	for {
		var delay time.Duration
		if first {
			delay = c.policy.FirstDelay()
			first = false
		} else {
			delay = c.policy.NextDelay()
		}

		c.mu.Lock()
		c.nextFetchAt = c.now().Add(delay)
		c.mu.Unlock()
		c.logger.WithField("delay", delay.String()).Debug("Next fetch scheduled")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		c.refresh(ctx)
		if ctx.Err() != nil {
			return
		}
	}
}

// refresh performs one fetch attempt and resolves it to success or degraded.
func (c *DeliveryCoordinator) refresh(ctx context.Context) {
	resp, err := c.fetcher.Fetch(ctx, c.postalCode)
	fetchedAt := c.now()

	// Untracked while the fetch was in flight: discard the result rather
	// than write into a coordinator that no longer exists.
	if ctx.Err() != nil {
		c.logger.Debug("Discarding fetch result for removed coordinator")
		return
	}

	if err != nil || !resp.Success {
		c.mu.Lock()
		c.lastFetchSucceeded = false
		c.mu.Unlock()

		if err != nil {
			c.logger.WithError(err).Warn("Fetch failed, serving last known good snapshot")
		} else {
			c.logger.Warn("API reported failure, serving last known good snapshot")
		}
		c.notifyListeners()
		return
	}

	// An empty result is valid data, not a failure: the snapshot is replaced
	// and the fetch counts as a success.
	dates := schedule.ParseDeliveryDates(resp.RawDates, c.logger)
	snap := schedule.Compute(dates, schedule.DateOf(fetchedAt), fetchedAt)

	c.mu.Lock()
	c.snapshot = &snap
	c.lastFetchSucceeded = true
	c.mu.Unlock()

	c.logger.WithField("delivery_count", snap.DeliveryCount()).Debug("Delivery schedule updated")

	if c.store != nil {
		saveCtx, cancelSave := context.WithTimeout(context.Background(), storeSaveTimeout)
		if err := c.store.Save(saveCtx, schedule.StoredSchedule{
			PostalCode: c.postalCode,
			RawDates:   resp.RawDates,
			FetchedAt:  fetchedAt,
		}); err != nil {
			c.logger.WithError(err).Warn("Could not persist snapshot to store")
		}
		cancelSave()
	}

	c.notifyListeners()
}

func (c *DeliveryCoordinator) notifyListeners() {
	c.mu.RLock()
	listeners := make([]UpdateListener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.RUnlock()

	for _, l := range listeners {
		l(c.postalCode)
	}
}
