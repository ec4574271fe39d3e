package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"posti_delivery_tracker/internal/domain/schedule"
	idb "posti_delivery_tracker/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// ErrDuplicatePostalCode is returned by Track when the code is already tracked.
var ErrDuplicatePostalCode = fmt.Errorf("postal code is already tracked")

// RegistryConfig carries the fetch timing shared by all coordinators. Each
// coordinator still draws its own random offsets.
type RegistryConfig struct {
	BaseInterval  time.Duration
	InitialSpread time.Duration
	UpdateJitter  time.Duration
}

// CoordinatorRegistry owns one DeliveryCoordinator per tracked postal code.
// Concurrent Track/Untrack/Get are safe; per-coordinator state is only ever
// mutated by that coordinator's own fetch cycle.
type CoordinatorRegistry struct {
	fetcher schedule.Fetcher
	store   schedule.SnapshotStore // optional, may be nil
	cfg     RegistryConfig
	logger  *logrus.Entry

	mu           sync.RWMutex
	coordinators map[schedule.PostalCode]*DeliveryCoordinator
	listeners    []UpdateListener
	shutdown     bool
}

// NewCoordinatorRegistry builds an empty registry. store may be nil when
// warm-start persistence is disabled.
func NewCoordinatorRegistry(
	fetcher schedule.Fetcher,
	store schedule.SnapshotStore,
	cfg RegistryConfig,
	log *logrus.Entry,
) *CoordinatorRegistry {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.BaseInterval <= 0 {
		cfg.BaseInterval = DefaultBaseInterval
	}
	return &CoordinatorRegistry{
		fetcher:      fetcher,
		store:        store,
		cfg:          cfg,
		logger:       log,
		coordinators: make(map[schedule.PostalCode]*DeliveryCoordinator),
	}
}

// AddListener registers an update listener that is attached to every
// coordinator created afterwards. Register listeners before tracking begins.
func (r *CoordinatorRegistry) AddListener(l UpdateListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Track validates the postal code, creates its coordinator and starts the
// fetch cycle. When no seed is supplied and a snapshot store holds fresh
// enough data for the code, that data seeds the coordinator so the first
// observation is served without a live fetch.
func (r *CoordinatorRegistry) Track(ctx context.Context, rawCode string, seed *schedule.Seed) (*DeliveryCoordinator, error) {
	postalCode, err := schedule.NewPostalCode(rawCode)
	if err != nil {
		return nil, err
	}

	if seed == nil {
		seed = r.warmStartSeed(ctx, postalCode)
	}

	policy := NewFetchPolicy(r.cfg.BaseInterval, r.cfg.InitialSpread, r.cfg.UpdateJitter, nil)
	coordinator := NewDeliveryCoordinator(postalCode, r.fetcher, policy, r.store, r.logger)

	r.mu.Lock()
	if r.shutdown {
		r.mu.Unlock()
		return nil, fmt.Errorf("registry is shut down")
	}
	if _, exists := r.coordinators[postalCode]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDuplicatePostalCode, postalCode)
	}
	for _, l := range r.listeners {
		coordinator.AddListener(l)
	}
	r.coordinators[postalCode] = coordinator
	r.mu.Unlock()

	coordinator.Start(seed)
	r.logger.WithFields(logrus.Fields{
		"postal_code": postalCode.String(),
		"seeded":      seed != nil,
	}).Info("Tracking postal code")

	return coordinator, nil
}

// Untrack cancels and discards the coordinator for a postal code. It is a
// no-op when the code is not tracked. An in-flight fetch for the removed code
// is allowed to finish but its result is discarded.
func (r *CoordinatorRegistry) Untrack(ctx context.Context, rawCode string) {
	postalCode := schedule.PostalCode(rawCode)

	r.mu.Lock()
	coordinator, exists := r.coordinators[postalCode]
	if exists {
		delete(r.coordinators, postalCode)
	}
	r.mu.Unlock()

	if !exists {
		return
	}

	coordinator.Stop()
	if r.store != nil {
		if err := r.store.Delete(ctx, postalCode); err != nil {
			r.logger.WithError(err).WithField("postal_code", postalCode.String()).
				Warn("Could not delete stored snapshot")
		}
	}
	r.logger.WithField("postal_code", postalCode.String()).Info("Stopped tracking postal code")
}

// Get returns the current snapshot for a postal code. ok is false when the
// code is not tracked or no fetch has ever succeeded for it.
func (r *CoordinatorRegistry) Get(rawCode string) (schedule.Snapshot, bool) {
	coordinator, exists := r.Coordinator(rawCode)
	if !exists {
		return schedule.Snapshot{}, false
	}
	return coordinator.Snapshot()
}

// Coordinator returns the live coordinator handle for a postal code.
func (r *CoordinatorRegistry) Coordinator(rawCode string) (*DeliveryCoordinator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	coordinator, exists := r.coordinators[schedule.PostalCode(rawCode)]
	return coordinator, exists
}

// List returns all tracked coordinators in unspecified order.
func (r *CoordinatorRegistry) List() []*DeliveryCoordinator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*DeliveryCoordinator, 0, len(r.coordinators))
	for _, coordinator := range r.coordinators {
		out = append(out, coordinator)
	}
	return out
}

// RecomputeAll re-derives every coordinator's snapshot against a new
// reference day. Driven by the midnight rollover job.
func (r *CoordinatorRegistry) RecomputeAll(now time.Time) {
	for _, coordinator := range r.List() {
		coordinator.Recompute(now)
	}
}

// Shutdown cancels all pending scheduled fetches and waits for the fetch
// cycles to exit. The registry accepts no new codes afterwards.
func (r *CoordinatorRegistry) Shutdown() {
	r.mu.Lock()
	r.shutdown = true
	coordinators := make([]*DeliveryCoordinator, 0, len(r.coordinators))
	for postalCode, coordinator := range r.coordinators {
		coordinators = append(coordinators, coordinator)
		delete(r.coordinators, postalCode)
	}
	r.mu.Unlock()

	for _, coordinator := range coordinators {
		coordinator.Stop()
	}
	for _, coordinator := range coordinators {
		<-coordinator.Done()
	}
	r.logger.Info("Coordinator registry shut down")
}

// warmStartSeed loads stored data for the code and turns it into a seed when
// it is younger than the base interval. Stale rows are ignored so the first
// live fetch proceeds immediately, mirroring a fresh track.
func (r *CoordinatorRegistry) warmStartSeed(ctx context.Context, postalCode schedule.PostalCode) *schedule.Seed {
	if r.store == nil {
		return nil
	}

	stored, err := r.store.Load(ctx, postalCode)
	if err != nil {
		if err != idb.ErrSnapshotNotFound {
			r.logger.WithError(err).WithField("postal_code", postalCode.String()).
				Warn("Could not load stored snapshot")
		}
		return nil
	}

	age := time.Since(stored.FetchedAt)
	if age > r.cfg.BaseInterval {
		r.logger.WithFields(logrus.Fields{
			"postal_code": postalCode.String(),
			"age":         age.String(),
		}).Info("Stored snapshot is stale, forcing live fetch")
		return nil
	}

	r.logger.WithField("postal_code", postalCode.String()).Debug("Seeding coordinator from stored snapshot")
	return &schedule.Seed{RawDates: stored.RawDates, FetchedAt: stored.FetchedAt}
}
