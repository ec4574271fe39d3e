package app

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFirstDelayWithinBounds(t *testing.T) {
	t.Parallel()

	base := 12 * time.Hour
	spread := 30 * time.Minute
	policy := NewFetchPolicy(base, spread, 2*time.Minute, rand.New(rand.NewSource(1)))

	for i := 0; i < 1000; i++ {
		delay := policy.FirstDelay()
		assert.GreaterOrEqual(t, delay, base)
		assert.LessOrEqual(t, delay, base+spread)
	}
}

func TestNextDelayWithinBounds(t *testing.T) {
	t.Parallel()

	base := 12 * time.Hour
	jitter := 2 * time.Minute
	policy := NewFetchPolicy(base, 30*time.Minute, jitter, rand.New(rand.NewSource(1)))

	for i := 0; i < 1000; i++ {
		delay := policy.NextDelay()
		assert.GreaterOrEqual(t, delay, base-jitter)
		assert.LessOrEqual(t, delay, base+jitter)
	}
}

func TestFixedSeedIsDeterministic(t *testing.T) {
	t.Parallel()

	a := NewFetchPolicy(time.Hour, 10*time.Minute, time.Minute, rand.New(rand.NewSource(42)))
	b := NewFetchPolicy(time.Hour, 10*time.Minute, time.Minute, rand.New(rand.NewSource(42)))

	for i := 0; i < 50; i++ {
		assert.Equal(t, a.FirstDelay(), b.FirstDelay())
		assert.Equal(t, a.NextDelay(), b.NextDelay())
	}
}

func TestIndependentDrawsDesynchronize(t *testing.T) {
	t.Parallel()

	// Two coordinators created at the same instant with different sources
	// must not share a first wake time (with overwhelming probability).
	a := NewFetchPolicy(12*time.Hour, 30*time.Minute, 2*time.Minute, rand.New(rand.NewSource(7)))
	b := NewFetchPolicy(12*time.Hour, 30*time.Minute, 2*time.Minute, rand.New(rand.NewSource(8)))

	assert.NotEqual(t, a.FirstDelay(), b.FirstDelay())
}

func TestZeroSpreadAndJitter(t *testing.T) {
	t.Parallel()

	policy := NewFetchPolicy(time.Hour, 0, 0, rand.New(rand.NewSource(1)))

	assert.Equal(t, time.Hour, policy.FirstDelay())
	assert.Equal(t, time.Hour, policy.NextDelay())
}
