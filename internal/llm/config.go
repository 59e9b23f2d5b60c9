package llm

import (
	"time"

	"query-orchestrator/internal/common/config"
)

// Config holds request defaults and the retry policy of a Client.
type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration // per attempt
	MaxAttempts int
	Backoff     BackoffConfig
}

// BackoffConfig describes the delay between attempts.
type BackoffConfig struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Jitter    float64 // fraction of the delay, 0 disables
}

// ProviderConfig locates the OpenAI-compatible gateway.
type ProviderConfig struct {
	APIKey  string
	BaseURL string
}

func DefaultConfig() Config {
	return Config{
		Model:       "gemini-2.5-flash",
		Temperature: 0.7,
		MaxTokens:   4096,
		Timeout:     60 * time.Second,
		MaxAttempts: 3,
		Backoff: BackoffConfig{
			BaseDelay: time.Second,
			MaxDelay:  30 * time.Second,
			Jitter:    0.2,
		},
	}
}

// LoadConfig derives the client settings from the service configuration.
func LoadConfig(cfg *config.Config) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	if cfg.LLM.Model != "" {
		c.Model = cfg.LLM.Model
	}
	if cfg.LLM.Temperature != 0 {
		c.Temperature = cfg.LLM.Temperature
	}
	if cfg.LLM.MaxTokens > 0 {
		c.MaxTokens = cfg.LLM.MaxTokens
	}
	if cfg.LLM.Timeout > 0 {
		c.Timeout = config.GetDuration(cfg.LLM.Timeout)
	}
	if cfg.Retry.MaxAttempts > 0 {
		c.MaxAttempts = cfg.Retry.MaxAttempts
	}
	if cfg.Retry.BaseDelay > 0 {
		c.Backoff.BaseDelay = config.GetDuration(cfg.Retry.BaseDelay)
	}
	if cfg.Retry.MaxDelay > 0 {
		c.Backoff.MaxDelay = config.GetDuration(cfg.Retry.MaxDelay)
	}
	c.Backoff.Jitter = cfg.Retry.Jitter
	return c
}

// LoadProviderConfig extracts gateway settings from the service configuration.
func LoadProviderConfig(cfg *config.Config) ProviderConfig {
	return ProviderConfig{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
	}
}
