package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Search        SearchConfig       `mapstructure:"search"`
	Deals         DealsConfig        `mapstructure:"deals"`
	Adapters      AdaptersConfig     `mapstructure:"adapters"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	History       HistoryConfig      `mapstructure:"history"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
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

// Enabled reports whether a postgres host was configured.
func (p PostgresConfig) Enabled() bool { return p.Host != "" }

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

func (e ElasticsearchConfig) Enabled() bool { return len(e.Addresses) > 0 }

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Enabled() bool { return r.Address != "" }

// SearchConfig tunes the scatter/gather pipeline.
type SearchConfig struct {
	AdapterTimeout     int      `mapstructure:"adapter_timeout"` // milliseconds
	CacheTTL           int      `mapstructure:"cache_ttl"`       // seconds
	MaxResults         int      `mapstructure:"max_results"`
	RateLimitPerMinute int      `mapstructure:"rate_limit_per_minute"`
	Platforms          []string `mapstructure:"platforms"` // empty means every known platform
}

type DealsConfig struct {
	Source      string `mapstructure:"source"` // memory | postgres
	CatalogPath string `mapstructure:"catalog_path"`
	Watch       bool   `mapstructure:"watch"`
}

// AdaptersConfig selects how platform adapters are built.
// Mode "simulated" uses in-process price models, "http" calls Endpoints.
type AdaptersConfig struct {
	Mode      string            `mapstructure:"mode"`
	Endpoints map[string]string `mapstructure:"endpoints"`
}

type NotificationConfig struct {
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		Region   string `mapstructure:"region"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
	SurgeThreshold float64 `mapstructure:"surge_threshold"`
}

type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Index   string `mapstructure:"index"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
