package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	HistoryBackendMemory   = "memory"
	HistoryBackendRedis    = "redis"
	HistoryBackendPostgres = "postgres"
)

type Config struct {
	Host string
	Port int
	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	Environment   string `toml:"environment"`
	SentryEnabled bool   `toml:"sentry_enabled"`
	// metrics
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`
	// history
	HistoryBackend     string `toml:"history_backend"`
	HistoryMaxEntries  int    `toml:"history_max_entries"`
	HistoryCacheSizeMB int    `toml:"history_cache_size_mb"`
	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort int    `toml:"redis_port"`
	// postgres
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`
	// control surface
	RateLimitAllowedPerMin int      `toml:"rate_limit_allowed_per_min"`
	AllowedOrigins         []string `toml:"allowed_origins"`
	// tracking
	CatalogPath   string  `toml:"catalog_path"`
	ProgramsPath  string  `toml:"programs_path"`
	MaxJumpMeters float64 `toml:"max_jump_meters"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

// Load reads the config file at path and returns the section for env.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("config for env [%s] missing in %s", env, path)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("env [%s]: %w", env, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HistoryBackend == "" {
		c.HistoryBackend = HistoryBackendMemory
	}
	switch c.HistoryBackend {
	case HistoryBackendMemory, HistoryBackendRedis, HistoryBackendPostgres:
	default:
		return fmt.Errorf("unknown history backend: %s", c.HistoryBackend)
	}
	if c.HistoryMaxEntries < 0 {
		return fmt.Errorf("negative history_max_entries: %d", c.HistoryMaxEntries)
	}
	if c.MaxJumpMeters < 0 {
		return fmt.Errorf("negative max_jump_meters: %f", c.MaxJumpMeters)
	}
	return nil
}
