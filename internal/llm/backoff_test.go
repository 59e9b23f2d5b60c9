package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff_Exponential(t *testing.T) {
	cfg := BackoffConfig{BaseDelay: time.Second, MaxDelay: 30 * time.Second}

	assert.Equal(t, time.Second, Backoff(1, cfg, 0))
	assert.Equal(t, 2*time.Second, Backoff(2, cfg, 0))
	assert.Equal(t, 4*time.Second, Backoff(3, cfg, 0))
	assert.Equal(t, 16*time.Second, Backoff(5, cfg, 0))
	assert.Equal(t, 30*time.Second, Backoff(6, cfg, 0))
	assert.Equal(t, 30*time.Second, Backoff(60, cfg, 0))
}

func TestBackoff_MonotoneAndCapped(t *testing.T) {
	configs := []BackoffConfig{
		{BaseDelay: 100 * time.Millisecond, MaxDelay: 5 * time.Second},
		{BaseDelay: time.Second, MaxDelay: 30 * time.Second, Jitter: 0.2},
		{BaseDelay: 250 * time.Millisecond, MaxDelay: time.Second, Jitter: 1},
	}

	for _, cfg := range configs {
		for _, r := range []float64{0, 0.25, 0.5, 0.999} {
			prev := time.Duration(0)
			for attempt := 1; attempt <= 40; attempt++ {
				d := Backoff(attempt, cfg, r)
				assert.GreaterOrEqual(t, d, prev, "attempt %d r %v", attempt, r)
				assert.LessOrEqual(t, d, cfg.MaxDelay)
				prev = d
			}
		}
	}
}

func TestBackoff_JitterBand(t *testing.T) {
	cfg := BackoffConfig{BaseDelay: time.Second, MaxDelay: time.Minute, Jitter: 0.2}

	assert.Equal(t, 800*time.Millisecond, Backoff(1, cfg, 0))
	assert.Equal(t, time.Second, Backoff(1, cfg, 0.5))
	assert.InDelta(t, float64(1200*time.Millisecond), float64(Backoff(1, cfg, 1)), float64(time.Millisecond))
}

func TestBackoff_Degenerate(t *testing.T) {
	assert.Zero(t, Backoff(0, BackoffConfig{BaseDelay: time.Second}, 0))
	assert.Zero(t, Backoff(3, BackoffConfig{}, 0))
	assert.Equal(t, 8*time.Second, Backoff(4, BackoffConfig{BaseDelay: time.Second}, 0))
}
