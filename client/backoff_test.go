package client

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextBackoffDelayGrowsAndCaps(t *testing.T) {
	cfg := BackoffConfig{
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2,
		MaxDelay:     time.Second,
	}

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second,
		time.Second,
	}
	for i, w := range want {
		assert.Equal(t, w, nextBackoffDelay(cfg, i+1, nil), "attempt %d", i+1)
	}
}

func TestNextBackoffDelayEdgeCases(t *testing.T) {
	assert.Zero(t, nextBackoffDelay(BackoffConfig{}, 3, nil))

	cfg := BackoffConfig{InitialDelay: 50 * time.Millisecond, Multiplier: 0.5}
	assert.Equal(t, 50*time.Millisecond, nextBackoffDelay(cfg, 0, nil))
	assert.Equal(t, 50*time.Millisecond, nextBackoffDelay(cfg, 4, nil), "multiplier below one is clamped")
}

func TestNextBackoffDelayJitter(t *testing.T) {
	cfg := DefaultBackoff()
	assert.Equal(t, 250*time.Millisecond, nextBackoffDelay(cfg, 1, nil))

	rng := rand.New(rand.NewSource(1))
	for attempt := 1; attempt <= 10; attempt++ {
		d := nextBackoffDelay(cfg, attempt, rng)
		assert.GreaterOrEqual(t, d, 250*time.Millisecond)
		assert.Less(t, d, 15*time.Second)
	}
}
