// internal/orchestrator/config.go
package orchestrator

import (
	"time"

	"query-orchestrator/internal/common/config"
)

type Config struct {
	AgentTimeout   time.Duration
	StrictFallback bool
}

func LoadConfig(cfg *config.Config) *Config {
	c := &Config{AgentTimeout: 120 * time.Second}
	if cfg == nil {
		return c
	}
	if cfg.Orchestrator.AgentTimeout > 0 {
		c.AgentTimeout = config.GetDuration(cfg.Orchestrator.AgentTimeout)
	}
	c.StrictFallback = cfg.Orchestrator.StrictFallback
	return c
}
