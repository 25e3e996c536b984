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

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on top
// and lets environment variables override any key (search.cache_ttl -> SEARCH_CACHE_TTL).
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional overlay

	return decode(v)
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

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)
	return v
}

// AutomaticEnv only resolves keys viper already knows about, so keys that may
// be absent from the yaml are registered explicitly.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"server.address",
		"database.postgres.host", "database.postgres.port", "database.postgres.database",
		"database.postgres.user", "database.postgres.password",
		"database.redis.address", "database.redis.password",
		"database.elasticsearch.addresses",
		"search.adapter_timeout", "search.cache_ttl", "search.max_results",
		"search.rate_limit_per_minute",
		"deals.source", "deals.catalog_path",
		"adapters.mode",
		"notifications.sns.enabled", "notifications.sns.topic_arn", "notifications.sns.region",
		"history.enabled",
		"logging.level", "logging.format",
	} {
		_ = v.BindEnv(key)
	}
}

func decode(v *viper.Viper) (*Config, error) {
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

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

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
			return ""
		}
		dir = parent
	}
}

// expandEnvVars resolves ${VAR} placeholders left in string values. An unset
// variable expands to "", which leaves optional infrastructure disabled.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok || !strings.Contains(strVal, "$") {
			continue
		}
		if expanded := os.ExpandEnv(strVal); expanded != strVal {
			v.Set(key, expanded)
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "smart-dealer"
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	if cfg.Search.AdapterTimeout == 0 {
		cfg.Search.AdapterTimeout = 5000
	}
	if cfg.Search.CacheTTL == 0 {
		cfg.Search.CacheTTL = 60
	}
	if cfg.Search.MaxResults == 0 {
		cfg.Search.MaxResults = 20
	}
	if cfg.Search.RateLimitPerMinute == 0 {
		cfg.Search.RateLimitPerMinute = 60
	}

	if cfg.Deals.Source == "" {
		cfg.Deals.Source = "memory"
	}
	if cfg.Adapters.Mode == "" {
		cfg.Adapters.Mode = "simulated"
	}
	if cfg.Notifications.SurgeThreshold == 0 {
		cfg.Notifications.SurgeThreshold = 1.5
	}
	if cfg.History.Index == "" {
		cfg.History.Index = "dealer-searches"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Search.AdapterTimeout < 0 {
		return fmt.Errorf("search.adapter_timeout must be positive")
	}
	if cfg.Search.CacheTTL < 0 {
		return fmt.Errorf("search.cache_ttl must be positive")
	}
	if cfg.Search.MaxResults < 0 {
		return fmt.Errorf("search.max_results must be positive")
	}

	switch cfg.Deals.Source {
	case "memory":
	case "postgres":
		if !cfg.Database.Postgres.Enabled() {
			return fmt.Errorf("deals.source postgres requires database.postgres.host")
		}
	default:
		return fmt.Errorf("deals.source %q is not one of memory, postgres", cfg.Deals.Source)
	}

	switch cfg.Adapters.Mode {
	case "simulated":
	case "http":
		if len(cfg.Adapters.Endpoints) == 0 {
			return fmt.Errorf("adapters.mode http requires adapters.endpoints")
		}
	default:
		return fmt.Errorf("adapters.mode %q is not one of simulated, http", cfg.Adapters.Mode)
	}

	if cfg.Notifications.SNS.Enabled && cfg.Notifications.SNS.TopicARN == "" {
		return fmt.Errorf("notifications.sns.topic_arn is required when sns is enabled")
	}
	if cfg.History.Enabled && !cfg.Database.Elasticsearch.Enabled() {
		return fmt.Errorf("history requires database.elasticsearch.addresses")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// AdapterTimeout returns the per-adapter deadline.
func (c *Config) AdapterTimeout() time.Duration {
	return GetDuration(c.Search.AdapterTimeout)
}

// CacheTTL returns the offer cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Search.CacheTTL) * time.Second
}
