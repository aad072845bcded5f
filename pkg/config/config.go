package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for vendata-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values. Secrets (passwords) must
// only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Default database connection, used when a request carries no tenant
	// descriptor or the descriptor is malformed.
	Database DatabaseConfig `yaml:"database"`

	// Per-tenant connection pool management
	TenantPools TenantPoolConfig `yaml:"tenant_pools"`

	// Result cache
	Cache CacheConfig `yaml:"cache"`

	// Analytics thresholds
	Analytics AnalyticsConfig `yaml:"analytics"`

	// Query retry policy
	Query QueryConfig `yaml:"query"`
}

// DatabaseConfig holds the default PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"vendata"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"vendata"`
	Schema         string `yaml:"schema" env:"PGSCHEMA" env-default:"public"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
}

// TenantPoolConfig holds per-tenant connection pool settings.
// Pool sizing is fixed at handle creation; the router never resizes a pool.
type TenantPoolConfig struct {
	// TTLMinutes is how long an idle tenant pool is kept before eviction.
	TTLMinutes int `yaml:"ttl_minutes" env:"TENANT_POOL_TTL_MINUTES" env-default:"5"`
	// PoolMaxConns is the maximum number of connections per tenant pool.
	PoolMaxConns int32 `yaml:"pool_max_conns" env:"TENANT_POOL_MAX_CONNS" env-default:"10"`
	// PoolMinConns is the minimum number of connections per tenant pool.
	PoolMinConns int32 `yaml:"pool_min_conns" env:"TENANT_POOL_MIN_CONNS" env-default:"1"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	// TTLSeconds is how long a computed result stays fresh.
	TTLSeconds int `yaml:"ttl_seconds" env:"CACHE_TTL_SECONDS" env-default:"300"`
}

// AnalyticsConfig holds classification and churn scoring settings.
type AnalyticsConfig struct {
	// CurveAThreshold is the cumulative-share cutoff for curve A.
	CurveAThreshold float64 `yaml:"curve_a_threshold" env:"CURVE_A_THRESHOLD" env-default:"0.80"`
	// CurveBThreshold is the cumulative-share cutoff for curve B.
	CurveBThreshold float64 `yaml:"curve_b_threshold" env:"CURVE_B_THRESHOLD" env-default:"0.95"`
	// LookbackDays is the activity window used to force entities to curve OFF.
	LookbackDays int `yaml:"lookback_days" env:"ANALYTICS_LOOKBACK_DAYS" env-default:"90"`
	// ChurnFloorDays excludes customers inactive for fewer days than this
	// from churn flagging entirely.
	ChurnFloorDays int `yaml:"churn_floor_days" env:"CHURN_FLOOR_DAYS" env-default:"30"`
}

// QueryConfig holds the query retry policy.
type QueryConfig struct {
	// MaxAttempts is the total number of attempts per query, including the first.
	MaxAttempts int `yaml:"max_attempts" env:"QUERY_MAX_ATTEMPTS" env-default:"3"`
	// BackoffMillis is the linear backoff step between attempts.
	BackoffMillis int `yaml:"backoff_millis" env:"QUERY_BACKOFF_MILLIS" env-default:"250"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validate rejects threshold configurations that would break classification
// monotonicity (A-cutoff <= B-cutoff <= 1).
func (c *Config) validate() error {
	a, b := c.Analytics.CurveAThreshold, c.Analytics.CurveBThreshold
	if a <= 0 || b <= 0 {
		return fmt.Errorf("curve thresholds must be positive (A=%v, B=%v)", a, b)
	}
	if a > b {
		return fmt.Errorf("curve A threshold (%v) must not exceed curve B threshold (%v)", a, b)
	}
	if b > 1 {
		return fmt.Errorf("curve B threshold (%v) must not exceed 1", b)
	}
	if c.Query.MaxAttempts < 1 {
		return fmt.Errorf("query max_attempts must be at least 1, got %d", c.Query.MaxAttempts)
	}
	return nil
}

// ConnectionString returns a PostgreSQL keyword/value connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s search_path=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.Schema, c.SSLMode,
	)
}
