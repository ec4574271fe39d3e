package app

import (
	"math/rand"
	"sync"
	"time"
)

// Default fetch timing. The base interval is long; the spread and jitter
// keep many coordinators from waking at the same instant.
const (
	DefaultBaseInterval  = 12 * time.Hour
	DefaultInitialSpread = 30 * time.Minute
	DefaultUpdateJitter  = 2 * time.Minute
)

// FetchPolicy decides the delay until a coordinator's next scheduled fetch.
//
// The first recurring fetch after a coordinator starts is offset by a
// uniformly random amount in [0, spread]; each draw is independent, which is
// enough to desynchronize coordinators created at roughly the same time.
// Every subsequent reschedule perturbs the base interval by a uniform offset
// in [-jitter, +jitter] instead, so no two ticks land on the same cadence.
type FetchPolicy struct {
	base   time.Duration
	spread time.Duration
	jitter time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewFetchPolicy builds a policy. rng is the injected pseudo-random source;
// pass nil to seed one from the wall clock. Tests pass a fixed-seed source so
// delay bounds can be asserted deterministically.
func NewFetchPolicy(base, spread, jitter time.Duration, rng *rand.Rand) *FetchPolicy {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &FetchPolicy{
		base:   base,
		spread: spread,
		jitter: jitter,
		rng:    rng,
	}
}

// FirstDelay returns base + uniform[0, spread].
func (p *FetchPolicy) FirstDelay() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.spread <= 0 {
		return p.base
	}
	return p.base + time.Duration(p.rng.Int63n(int64(p.spread)+1))
}

// NextDelay returns base + uniform[-jitter, +jitter].
func (p *FetchPolicy) NextDelay() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.jitter <= 0 {
		return p.base
	}
	return p.base - p.jitter + time.Duration(p.rng.Int63n(2*int64(p.jitter)+1))
}

// Base returns the unperturbed fetch interval. The registry uses it as the
// staleness threshold for warm-start data.
func (p *FetchPolicy) Base() time.Duration {
	return p.base
}
