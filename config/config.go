// Package config loads service configuration from .env files, an optional
// config.yaml and VERDICT_* environment variables.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"

	"github.com/landing-verdict/backend/fetcher"
	"github.com/landing-verdict/backend/logging"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "VERDICT"

// Config holds the full application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       logging.Config  `yaml:"log" mapstructure:"log"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Stats     StatsConfig     `yaml:"stats" mapstructure:"stats"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port    int    `yaml:"port" mapstructure:"port"`
	Mode    string `yaml:"mode" mapstructure:"mode"`
	DevMode bool   `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// FetchConfig configures page fetching and caching.
type FetchConfig struct {
	TimeoutSecs     int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxBodyBytes    int64  `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	UserAgent       string `yaml:"user_agent" mapstructure:"user_agent"`
	CacheTTLMins    int    `yaml:"cache_ttl_mins" mapstructure:"cache_ttl_mins"`
	MaxCacheEntries int    `yaml:"max_cache_entries" mapstructure:"max_cache_entries"`
}

// Fetcher converts the file-level settings into a fetcher.Config.
func (f FetchConfig) Fetcher() fetcher.Config {
	cfg := fetcher.DefaultConfig()
	cfg.Timeout = time.Duration(f.TimeoutSecs) * time.Second
	cfg.MaxBodyBytes = f.MaxBodyBytes
	cfg.UserAgent = f.UserAgent
	cfg.CacheTTL = time.Duration(f.CacheTTLMins) * time.Minute
	cfg.MaxCacheEntries = f.MaxCacheEntries
	return cfg
}

// RateLimitConfig configures the per-IP limiter.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" mapstructure:"rps"`
	Burst int     `yaml:"burst" mapstructure:"burst"`
}

// StatsConfig configures statistics persistence.
type StatsConfig struct {
	DataDir      string `yaml:"data_dir" mapstructure:"data_dir"`
	RetainMonths int    `yaml:"retain_months" mapstructure:"retain_months"`
}

// BatchConfig configures batch analysis.
type BatchConfig struct {
	MaxConcurrency int `yaml:"max_concurrency" mapstructure:"max_concurrency"`
}

// Load reads configuration. .env.development then .env are loaded into the
// environment first; existing variables are never overwritten. configPaths
// are searched for config.yaml, defaulting to the working directory.
func Load(configPaths ...string) (*Config, error) {
	loadEnv()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(configPaths) == 0 {
		configPaths = []string{"."}
	}
	for _, p := range configPaths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", 8082)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.dev_mode", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("fetch.timeout_secs", 15)
	v.SetDefault("fetch.max_body_bytes", 5<<20)
	v.SetDefault("fetch.user_agent", "LandingVerdict/1.0")
	v.SetDefault("fetch.cache_ttl_mins", 30)
	v.SetDefault("fetch.max_cache_entries", 1000)
	v.SetDefault("rate_limit.rps", 2)
	v.SetDefault("rate_limit.burst", 5)
	v.SetDefault("stats.data_dir", "data")
	v.SetDefault("stats.retain_months", 12)
	v.SetDefault("batch.max_concurrency", 4)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Server.Port < 1 || c.Server.Port > 65535:
		return eris.Errorf("config: server.port %d out of range", c.Server.Port)
	case c.Server.Mode != "debug" && c.Server.Mode != "release" && c.Server.Mode != "test":
		return eris.Errorf("config: server.mode %q must be debug, release or test", c.Server.Mode)
	case c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1:
		return eris.Errorf("config: rate_limit needs positive rps and burst")
	case c.Stats.RetainMonths < 1:
		return eris.Errorf("config: stats.retain_months must be at least 1")
	case c.Batch.MaxConcurrency < 1:
		return eris.Errorf("config: batch.max_concurrency must be at least 1")
	}
	return nil
}

// loadEnv loads .env.development first, then .env, if present.
func loadEnv() {
	for _, f := range []string{".env.development", ".env"} {
		_ = godotenv.Load(f)
	}
}
