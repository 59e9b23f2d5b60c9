// internal/agents/seo/config.go
package seo

import (
	"time"

	"query-orchestrator/internal/common/config"
)

type Config struct {
	LoadTimeout time.Duration
	ResultLimit int
	SampleRows  int
}

func LoadConfig(cfg *config.Config) *Config {
	c := &Config{
		LoadTimeout: 30 * time.Second,
		ResultLimit: DefaultLimit,
		SampleRows:  10,
	}
	if cfg == nil {
		return c
	}
	if cfg.SEO.Timeout > 0 {
		c.LoadTimeout = config.GetDuration(cfg.SEO.Timeout)
	}
	if cfg.SEO.ResultLimit > 0 {
		c.ResultLimit = cfg.SEO.ResultLimit
	}
	return c
}
