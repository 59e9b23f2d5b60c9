package llm

import "time"

// Backoff returns the delay before attempt+1 given that attempt failed.
// r in [0,1) selects a point in the jitter band; pass 0.5 for no offset.
func Backoff(attempt int, cfg BackoffConfig, r float64) time.Duration {
	if attempt < 1 || cfg.BaseDelay <= 0 {
		return 0
	}
	delay := cfg.BaseDelay
	for i := 1; i < attempt; i++ {
		if cfg.MaxDelay > 0 && delay >= cfg.MaxDelay {
			break
		}
		delay *= 2
	}

	if cfg.Jitter > 0 {
		factor := 1 + cfg.Jitter*(2*r-1)
		delay = time.Duration(float64(delay) * factor)
	}
	if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}
