// internal/agents/analytics/config.go
package analytics

import (
	"time"

	"query-orchestrator/internal/common/config"
)

type Config struct {
	FetchTimeout  time.Duration
	DefaultDays   int
	RowLimit      int64
	NarrativeRows int
}

func LoadConfig(cfg *config.Config) *Config {
	c := &Config{
		FetchTimeout:  30 * time.Second,
		DefaultDays:   7,
		RowLimit:      1000,
		NarrativeRows: 20,
	}
	if cfg == nil {
		return c
	}
	if cfg.GA4.Timeout > 0 {
		c.FetchTimeout = config.GetDuration(cfg.GA4.Timeout)
	}
	if cfg.GA4.DefaultDays > 0 {
		c.DefaultDays = cfg.GA4.DefaultDays
	}
	if cfg.GA4.RowLimit > 0 {
		c.RowLimit = int64(cfg.GA4.RowLimit)
	}
	if cfg.GA4.NarrativeRows > 0 {
		c.NarrativeRows = cfg.GA4.NarrativeRows
	}
	return c
}
