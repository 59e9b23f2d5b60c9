// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envAliases maps config keys to the environment variables the deployment
// already uses. The first variable that is set wins.
var envAliases = map[string][]string{
	"llm.api_key":          {"LLM_API_KEY", "LITELLM_API_KEY"},
	"llm.base_url":         {"LLM_BASE_URL", "LITELLM_BASE_URL"},
	"llm.model":            {"LLM_MODEL", "LITELLM_MODEL"},
	"ga4.credentials_path": {"GA4_CREDENTIALS_PATH"},
	"seo.spreadsheet_id":   {"SEO_SPREADSHEET_ID"},
	"seo.credentials_path": {"SEO_CREDENTIALS_PATH"},
	"server.host":          {"SERVER_HOST"},
	"server.port":          {"SERVER_PORT"},
	"logging.level":        {"LOG_LEVEL"},
}

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on top
// and applies environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, envs := range envAliases {
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads the first .env found walking towards the project root.
func loadEnvFile() string {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} and ${VAR:default} placeholders in string
// values. Unset variables without a default expand to "".
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok || !strings.Contains(strVal, "$") {
			continue
		}
		expanded := os.Expand(strVal, lookupWithDefault)
		if expanded != strVal {
			v.Set(key, expanded)
		}
	}
}

func lookupWithDefault(name string) string {
	fallback := ""
	if i := strings.Index(name, ":"); i >= 0 {
		name, fallback = name[:i], name[i+1:]
	}
	if val, ok := os.LookupEnv(name); ok && val != "" {
		return val
	}
	return fallback
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "query-orchestrator"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	// Server defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 180000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10000
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}

	// LLM defaults
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "http://localhost:4000"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gemini-2.5-flash"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.7
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 4096
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 60000
	}

	// Retry defaults
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.BaseDelay == 0 {
		cfg.Retry.BaseDelay = 1000
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = 30000
	}
	if cfg.Retry.Jitter == 0 {
		cfg.Retry.Jitter = 0.2
	}

	if cfg.Orchestrator.AgentTimeout == 0 {
		cfg.Orchestrator.AgentTimeout = 120000
	}

	// Data source defaults
	if cfg.GA4.Timeout == 0 {
		cfg.GA4.Timeout = 30000
	}
	if cfg.GA4.DefaultDays == 0 {
		cfg.GA4.DefaultDays = 7
	}
	if cfg.GA4.RowLimit == 0 {
		cfg.GA4.RowLimit = 1000
	}
	if cfg.GA4.NarrativeRows == 0 {
		cfg.GA4.NarrativeRows = 20
	}
	if cfg.SEO.Range == "" {
		cfg.SEO.Range = "Sheet1!A1:ZZ"
	}
	if cfg.SEO.CacheTTL == 0 {
		cfg.SEO.CacheTTL = 300
	}
	if cfg.SEO.ResultLimit == 0 {
		cfg.SEO.ResultLimit = 100
	}
	if cfg.SEO.Timeout == 0 {
		cfg.SEO.Timeout = 30000
	}

	// Database defaults
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 2
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = cfg.App.Name
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.LLM.BaseURL == "" {
		return fmt.Errorf("llm.base_url is required")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got %v", cfg.LLM.Temperature)
	}
	if cfg.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if cfg.Retry.Jitter < 0 || cfg.Retry.Jitter > 1 {
		return fmt.Errorf("retry.jitter must be between 0 and 1, got %v", cfg.Retry.Jitter)
	}
	if cfg.Retry.MaxDelay < cfg.Retry.BaseDelay {
		return fmt.Errorf("retry.max_delay must not be below retry.base_delay")
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", cfg.Server.Port)
	}
	if cfg.Database.Postgres.Enabled() && cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required when database.postgres.host is set")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
