// Package config provides configuration management for LeadScout. It
// handles loading, validation, and access to configuration values from
// YAML files and environment variables via viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// App defaults.
const (
	defaultServerAddress      = ":8080"
	defaultServerReadTimeout  = 15 * time.Second
	defaultServerWriteTimeout = 15 * time.Second
	defaultServerIdleTimeout  = 60 * time.Second
)

// Discovery defaults.
const (
	DefaultWorkerPoolSize      = 5
	DefaultCacheTTL            = 15 * time.Minute
	DefaultTier1Timeout        = 5 * time.Second
	DefaultTier2Timeout        = 25 * time.Second
	DefaultMinIntentThreshold  = 0.8
	DefaultInteractiveEarlyHit = 2
	DefaultAggregateEarlyHit   = 5
	DefaultSemanticThreshold   = 0.87
)

// Scheduler defaults.
const (
	DefaultTickInterval    = 60 * time.Second
	DefaultAgentDeadline   = 10 * time.Minute
	DefaultRescheduleFloor = 15 * time.Minute
)

// Config is the root application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Scrapers  ScrapersConfig  `mapstructure:"scrapers"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level       string   `mapstructure:"level"`
	Development bool     `mapstructure:"development"`
	Encoding    string   `mapstructure:"encoding"`
	OutputPaths []string `mapstructure:"output_paths"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig holds Redis connection settings for quota counters.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DiscoveryConfig holds orchestrator knobs. Everything the pipeline
// must honor as injected configuration rather than hardcoded constants.
type DiscoveryConfig struct {
	WorkerPoolSize      int           `mapstructure:"worker_pool_size"`
	CacheTTL            time.Duration `mapstructure:"cache_ttl"`
	Tier1Timeout        time.Duration `mapstructure:"tier1_timeout"`
	Tier2Timeout        time.Duration `mapstructure:"tier2_timeout"`
	MinIntentThreshold  float64       `mapstructure:"min_intent_threshold"`
	InteractiveEarlyHit int           `mapstructure:"interactive_early_hit"`
	AggregateEarlyHit   int           `mapstructure:"aggregate_early_hit"`
	SemanticThreshold   float64       `mapstructure:"semantic_threshold"`
	Strict              bool          `mapstructure:"strict"`
	EscalationWindows   []int         `mapstructure:"escalation_windows"`
}

// SchedulerConfig holds agent scheduler knobs.
type SchedulerConfig struct {
	TickInterval    time.Duration `mapstructure:"tick_interval"`
	AgentDeadline   time.Duration `mapstructure:"agent_deadline"`
	RescheduleFloor time.Duration `mapstructure:"reschedule_floor"`
}

// ScrapersConfig holds per-plugin settings keyed by plugin name.
type ScrapersConfig struct {
	RateLimitSeconds map[string]int `mapstructure:"rate_limit_seconds"`
	PaidDailyQuota   map[string]int `mapstructure:"paid_daily_quota"`
}

// Load loads configuration from the given path (or the default search
// locations when empty), applying environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// No config file is fine: defaults plus environment variables.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration for obviously broken values.
func (c *Config) Validate() error {
	if c.Discovery.WorkerPoolSize <= 0 {
		return errors.New("discovery.worker_pool_size must be positive")
	}
	if c.Discovery.CacheTTL <= 0 {
		return errors.New("discovery.cache_ttl must be positive")
	}
	if c.Discovery.MinIntentThreshold < 0 || c.Discovery.MinIntentThreshold > 1 {
		return errors.New("discovery.min_intent_threshold must be on [0,1]")
	}
	if c.Discovery.SemanticThreshold < 0 || c.Discovery.SemanticThreshold > 1 {
		return errors.New("discovery.semantic_threshold must be on [0,1]")
	}
	if c.Scheduler.TickInterval <= 0 {
		return errors.New("scheduler.tick_interval must be positive")
	}
	if c.Scheduler.AgentDeadline <= 0 {
		return errors.New("scheduler.agent_deadline must be positive")
	}
	return nil
}

// setDefaults applies default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app", map[string]any{
		"name":        "leadscout",
		"environment": "production",
		"debug":       false,
	})

	v.SetDefault("logger", map[string]any{
		"level":        "info",
		"development":  false,
		"encoding":     "json",
		"output_paths": []string{"stdout"},
	})

	v.SetDefault("server", map[string]any{
		"address":       defaultServerAddress,
		"read_timeout":  defaultServerReadTimeout.String(),
		"write_timeout": defaultServerWriteTimeout.String(),
		"idle_timeout":  defaultServerIdleTimeout.String(),
	})

	v.SetDefault("database", map[string]any{
		"host":    "127.0.0.1",
		"port":    "5432",
		"user":    "leadscout",
		"dbname":  "leadscout",
		"sslmode": "disable",
	})

	v.SetDefault("redis", map[string]any{
		"address": "127.0.0.1:6379",
		"db":      0,
	})

	v.SetDefault("discovery", map[string]any{
		"worker_pool_size":      DefaultWorkerPoolSize,
		"cache_ttl":             DefaultCacheTTL.String(),
		"tier1_timeout":         DefaultTier1Timeout.String(),
		"tier2_timeout":         DefaultTier2Timeout.String(),
		"min_intent_threshold":  DefaultMinIntentThreshold,
		"interactive_early_hit": DefaultInteractiveEarlyHit,
		"aggregate_early_hit":   DefaultAggregateEarlyHit,
		"semantic_threshold":    DefaultSemanticThreshold,
		"strict":                false,
		"escalation_windows":    []int{6, 24},
	})

	v.SetDefault("scheduler", map[string]any{
		"tick_interval":    DefaultTickInterval.String(),
		"agent_deadline":   DefaultAgentDeadline.String(),
		"reschedule_floor": DefaultRescheduleFloor.String(),
	})
}
