// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Retry         RetryConfig         `mapstructure:"retry"`
	Orchestrator  OrchestratorConfig  `mapstructure:"orchestrator"`
	GA4           GA4Config           `mapstructure:"ga4"`
	SEO           SEOConfig           `mapstructure:"seo"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Host            string   `mapstructure:"host"`
	Port            int      `mapstructure:"port"`
	ReadTimeout     int      `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int      `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int      `mapstructure:"shutdown_timeout"` // milliseconds
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
}

// Address returns host:port for the HTTP listener.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// Enabled reports whether the audit store is configured.
func (p PostgresConfig) Enabled() bool {
	return p.Host != ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Enabled() bool {
	return r.Address != ""
}

// --- LLM ---

// LLMConfig points at an OpenAI-compatible gateway such as LiteLLM.
type LLMConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds, per attempt
}

type RetryConfig struct {
	MaxAttempts int     `mapstructure:"max_attempts"`
	BaseDelay   int     `mapstructure:"base_delay"` // milliseconds
	MaxDelay    int     `mapstructure:"max_delay"`  // milliseconds
	Jitter      float64 `mapstructure:"jitter"`     // fraction of the delay, 0..1
}

// --- Orchestration ---
type OrchestratorConfig struct {
	AgentTimeout   int  `mapstructure:"agent_timeout"` // milliseconds
	StrictFallback bool `mapstructure:"strict_fallback"`
}

// --- Data sources ---
type GA4Config struct {
	CredentialsPath string `mapstructure:"credentials_path"`
	Endpoint        string `mapstructure:"endpoint"`
	Timeout         int    `mapstructure:"timeout"` // milliseconds
	DefaultDays     int    `mapstructure:"default_days"`
	RowLimit        int    `mapstructure:"row_limit"`
	NarrativeRows   int    `mapstructure:"narrative_rows"`
}

type SEOConfig struct {
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	Range           string `mapstructure:"range"`
	CredentialsPath string `mapstructure:"credentials_path"`
	Endpoint        string `mapstructure:"endpoint"`
	CacheTTL        int    `mapstructure:"cache_ttl"` // seconds
	ResultLimit     int    `mapstructure:"result_limit"`
	Timeout         int    `mapstructure:"timeout"` // milliseconds
}

// --- Ambient ---

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}
