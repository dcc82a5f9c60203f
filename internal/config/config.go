// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and REPUTATION_* env vars.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"regexp"
	"time"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSupabase = "supabase"
)

// Rank strategies.
const (
	RankByCount = "count"
	RankByScan  = "scan"
)

// DefaultAdminAPIKey is the shared secret used when none is configured.
const DefaultAdminAPIKey = "change-me-in-production"

var metricNamespace = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the member store: memory, postgres or supabase.
	StoreDriver string `koanf:"store_driver"`

	// DatabaseURL is the Postgres DSN used by the postgres driver.
	DatabaseURL string `koanf:"database_url"`

	// SupabaseURL and SupabaseServiceKey configure the supabase (PostgREST) driver.
	SupabaseURL        string `koanf:"supabase_url"`
	SupabaseServiceKey string `koanf:"supabase_service_key"`

	// AdminAPIKey is the shared secret required by mutating endpoints.
	AdminAPIKey string `koanf:"admin_api_key"`

	// PageSize is the leaderboard and search page size.
	PageSize int `koanf:"page_size"`

	// CacheTTL is how long the first leaderboard page stays fresh.
	CacheTTL time.Duration `koanf:"cache_ttl"`

	// RankStrategy picks how search results get their global rank.
	RankStrategy string `koanf:"rank_strategy"`

	// RankScanPageSize is the chunk size used by the scan rank strategy.
	RankScanPageSize int `koanf:"rank_scan_page_size"`

	// StoreTimeout bounds each store call made on behalf of a request.
	StoreTimeout time.Duration `koanf:"store_timeout"`

	// MetricsEnabled turns Prometheus recording on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsNamespace prefixes every exported metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`

	// MetricsRefreshInterval is how often runtime and cache gauges are sampled.
	MetricsRefreshInterval time.Duration `koanf:"metrics_refresh_interval"`

	// MetricsLatencyBuckets overrides the millisecond latency buckets (YAML only).
	MetricsLatencyBuckets []float64 `koanf:"metrics_latency_buckets"`

	// MetricsLabels are constant labels added to every series (YAML only).
	MetricsLabels map[string]string `koanf:"metrics_labels"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		StoreDriver:      DriverMemory,
		AdminAPIKey:      DefaultAdminAPIKey,
		PageSize:         10,
		CacheTTL:         5 * time.Minute,
		RankStrategy:     RankByCount,
		RankScanPageSize: 1000,
		StoreTimeout:     5 * time.Second,

		MetricsEnabled:         true,
		MetricsNamespace:       "reputation",
		MetricsRefreshInterval: 10 * time.Second,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.PageSize < 1:
		return fmt.Errorf("%w: page_size must be positive", ErrInvalidConfig)
	case c.CacheTTL <= 0:
		return fmt.Errorf("%w: cache_ttl must be positive", ErrInvalidConfig)
	case c.AdminAPIKey == "":
		return fmt.Errorf("%w: admin_api_key must not be empty", ErrInvalidConfig)
	case !metricNamespace.MatchString(c.MetricsNamespace):
		return fmt.Errorf("%w: metrics_namespace %q is not a valid metric name prefix", ErrInvalidConfig, c.MetricsNamespace)
	case c.MetricsRefreshInterval <= 0:
		return fmt.Errorf("%w: metrics_refresh_interval must be positive", ErrInvalidConfig)
	}
	for i := 1; i < len(c.MetricsLatencyBuckets); i++ {
		if c.MetricsLatencyBuckets[i] <= c.MetricsLatencyBuckets[i-1] {
			return fmt.Errorf("%w: metrics_latency_buckets must be strictly increasing", ErrInvalidConfig)
		}
	}

	switch c.StoreDriver {
	case DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: database_url is required for the postgres driver", ErrInvalidConfig)
		}
	case DriverSupabase:
		if c.SupabaseURL == "" || c.SupabaseServiceKey == "" {
			return fmt.Errorf("%w: supabase_url and supabase_service_key are required for the supabase driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}

	switch c.RankStrategy {
	case RankByCount:
	case RankByScan:
		if c.RankScanPageSize < 1 {
			return fmt.Errorf("%w: rank_scan_page_size must be positive", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown rank_strategy %q", ErrInvalidConfig, c.RankStrategy)
	}
	return nil
}
