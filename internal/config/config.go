// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	custom_errors "github-loc-stats/internal/errors"
	"github-loc-stats/internal/stats"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel               string        `mapstructure:"LOG_LEVEL"`
	HTTPAddr               string        `mapstructure:"HTTP_ADDR"`
	DBURL                  string        `mapstructure:"DB_URL"`
	GithubAPIURL           string        `mapstructure:"GITHUB_API_URL"`
	StatsStrategy          string        `mapstructure:"STATS_STRATEGY"`
	MaxRepos               int           `mapstructure:"MAX_REPOS"`
	MaxCommitsPerRepo      int           `mapstructure:"MAX_COMMITS_PER_REPO"`
	RepoConcurrency        int           `mapstructure:"REPO_CONCURRENCY"`
	FetchConcurrency       int           `mapstructure:"FETCH_CONCURRENCY"`
	ServerSideAuthorFilter bool          `mapstructure:"SERVER_SIDE_AUTHOR_FILTER"`
	CacheTTL               time.Duration `mapstructure:"CACHE_TTL"`
	AggregationTimeout     time.Duration `mapstructure:"AGGREGATION_TIMEOUT"`
	MaxRetries             int           `mapstructure:"MAX_RETRIES"`
	MaxRateLimitWait       time.Duration `mapstructure:"MAX_RATE_LIMIT_WAIT"`
}

// HistoryEnabled reports whether a database is configured for run history.
func (c *Config) HistoryEnabled() bool {
	return c.DBURL != ""
}

// LoadConfig reads configuration from file and/or environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DB_URL", "")
	v.SetDefault("GITHUB_API_URL", "")
	v.SetDefault("STATS_STRATEGY", stats.StrategyCommits)
	v.SetDefault("MAX_REPOS", 50)
	v.SetDefault("MAX_COMMITS_PER_REPO", 30)
	v.SetDefault("REPO_CONCURRENCY", 3)
	v.SetDefault("FETCH_CONCURRENCY", 10)
	v.SetDefault("SERVER_SIDE_AUTHOR_FILTER", true)
	v.SetDefault("CACHE_TTL", "1h")
	v.SetDefault("AGGREGATION_TIMEOUT", "2m")
	v.SetDefault("MAX_RETRIES", 3)
	v.SetDefault("MAX_RATE_LIMIT_WAIT", "1m")

	// Load from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if file not found

	// Bind environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.StatsStrategy = strings.ToLower(strings.TrimSpace(cfg.StatsStrategy))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.StatsStrategy != stats.StrategyCommits && c.StatsStrategy != stats.StrategyContributors {
		return &custom_errors.ErrInvalidStrategy{Strategy: c.StatsStrategy}
	}

	positive := []struct {
		key   string
		value int
	}{
		{"MAX_REPOS", c.MaxRepos},
		{"MAX_COMMITS_PER_REPO", c.MaxCommitsPerRepo},
		{"REPO_CONCURRENCY", c.RepoConcurrency},
		{"FETCH_CONCURRENCY", c.FetchConcurrency},
		{"MAX_RETRIES", c.MaxRetries},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%s must be a positive integer, got %d", p.key, p.value)
		}
	}

	if c.CacheTTL <= 0 {
		return errors.New("CACHE_TTL must be a positive duration")
	}
	if c.AggregationTimeout <= 0 {
		return errors.New("AGGREGATION_TIMEOUT must be a positive duration")
	}
	if c.MaxRateLimitWait < 0 {
		return errors.New("MAX_RATE_LIMIT_WAIT must not be negative")
	}
	if c.RepoConcurrency > c.FetchConcurrency {
		return fmt.Errorf("REPO_CONCURRENCY (%d) must not exceed FETCH_CONCURRENCY (%d)", c.RepoConcurrency, c.FetchConcurrency)
	}
	return nil
}
