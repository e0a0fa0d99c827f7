// Package config handles application configuration loading and validation using Viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Gamification GamificationConfig `mapstructure:"gamification"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Badges       []BadgeConfig      `mapstructure:"badges"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig contains database connection settings for PostgreSQL and Redis.
type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains PostgreSQL database connection and pool settings.
type PostgresConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Database        string `mapstructure:"database"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// RedisConfig contains Redis cache connection and pool settings.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// GamificationConfig contains award limits and leaderboard settings.
type GamificationConfig struct {
	// DailyPointLimit caps positive points per user per UTC day across
	// all limit-counted actions. Zero disables the limit.
	DailyPointLimit int `mapstructure:"daily_point_limit"`
	// LeaderboardCacheTTL is the redis cache lifetime in seconds for
	// leaderboard reads.
	LeaderboardCacheTTL int `mapstructure:"leaderboard_cache_ttl"`
	// LeaderboardMaxLimit bounds the page size of GetTop requests.
	LeaderboardMaxLimit int `mapstructure:"leaderboard_max_limit"`
}

// SchedulerConfig contains background job scheduling settings.
type SchedulerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// LeaderboardRefreshCron is a cron expression for the periodic full
	// leaderboard rebuild.
	LeaderboardRefreshCron string `mapstructure:"leaderboard_refresh_cron"`
	// BadgeSweepTime is the daily all-user badge evaluation time, "HH:MM".
	BadgeSweepTime string `mapstructure:"badge_sweep_time"`
	Timezone       string `mapstructure:"timezone"`
}

// MetricsConfig contains metrics exporter settings.
type MetricsConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig contains Prometheus metrics exporter settings.
type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig contains application logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// BadgeConfig represents one badge catalog entry with its unlock threshold.
type BadgeConfig struct {
	Code             string `mapstructure:"code"`
	Name             string `mapstructure:"name"`
	Description      string `mapstructure:"description"`
	Category         string `mapstructure:"category"`
	Tier             int    `mapstructure:"tier"`
	PointsReward     int    `mapstructure:"points_reward"`
	RequirementType  string `mapstructure:"requirement_type"`
	RequirementValue int    `mapstructure:"requirement_value"`
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/gamification/")
	}

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 25)
	v.SetDefault("database.postgres.max_idle_conns", 5)
	v.SetDefault("database.postgres.conn_max_lifetime", 300)
	v.SetDefault("database.redis.port", 6379)
	v.SetDefault("database.redis.pool_size", 10)
	v.SetDefault("gamification.daily_point_limit", 300)
	v.SetDefault("gamification.leaderboard_cache_ttl", 60)
	v.SetDefault("gamification.leaderboard_max_limit", 100)
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.leaderboard_refresh_cron", "*/5 * * * *")
	v.SetDefault("scheduler.badge_sweep_time", "03:30")
	v.SetDefault("scheduler.timezone", "UTC")
	v.SetDefault("metrics.prometheus.enabled", true)
	v.SetDefault("metrics.prometheus.path", "/metrics")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	// Bind specific environment variables (explicit bindings for 12-factor app compliance)
	// Server configuration
	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("server.environment", "SERVER_ENVIRONMENT")

	// PostgreSQL configuration
	_ = v.BindEnv("database.postgres.host", "POSTGRES_HOST")
	_ = v.BindEnv("database.postgres.port", "POSTGRES_PORT")
	_ = v.BindEnv("database.postgres.database", "POSTGRES_DB")
	_ = v.BindEnv("database.postgres.user", "POSTGRES_USER")
	_ = v.BindEnv("database.postgres.password", "POSTGRES_PASSWORD")
	_ = v.BindEnv("database.postgres.ssl_mode", "POSTGRES_SSL_MODE")
	_ = v.BindEnv("database.postgres.max_open_conns", "POSTGRES_MAX_OPEN_CONNS")
	_ = v.BindEnv("database.postgres.max_idle_conns", "POSTGRES_MAX_IDLE_CONNS")
	_ = v.BindEnv("database.postgres.conn_max_lifetime", "POSTGRES_CONN_MAX_LIFETIME")

	// Redis configuration
	_ = v.BindEnv("database.redis.host", "REDIS_HOST")
	_ = v.BindEnv("database.redis.port", "REDIS_PORT")
	_ = v.BindEnv("database.redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("database.redis.db", "REDIS_DB")
	_ = v.BindEnv("database.redis.pool_size", "REDIS_POOL_SIZE")

	// Gamification configuration
	_ = v.BindEnv("gamification.daily_point_limit", "GAMIFICATION_DAILY_POINT_LIMIT")
	_ = v.BindEnv("gamification.leaderboard_cache_ttl", "GAMIFICATION_LEADERBOARD_CACHE_TTL")
	_ = v.BindEnv("gamification.leaderboard_max_limit", "GAMIFICATION_LEADERBOARD_MAX_LIMIT")

	// Scheduler configuration
	_ = v.BindEnv("scheduler.enabled", "SCHEDULER_ENABLED")
	_ = v.BindEnv("scheduler.leaderboard_refresh_cron", "SCHEDULER_LEADERBOARD_REFRESH_CRON")
	_ = v.BindEnv("scheduler.badge_sweep_time", "SCHEDULER_BADGE_SWEEP_TIME")
	_ = v.BindEnv("scheduler.timezone", "SCHEDULER_TIMEZONE")

	// Logging configuration
	_ = v.BindEnv("logging.level", "LOG_LEVEL")
	_ = v.BindEnv("logging.format", "LOG_FORMAT")
	_ = v.BindEnv("logging.output", "LOG_OUTPUT")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if c.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if c.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}
	if c.Database.Redis.Host == "" {
		return fmt.Errorf("database.redis.host is required")
	}
	if c.Gamification.DailyPointLimit < 0 {
		return fmt.Errorf("gamification.daily_point_limit must not be negative")
	}
	for i, b := range c.Badges {
		if b.Code == "" {
			return fmt.Errorf("badges[%d].code is required", i)
		}
		if b.RequirementType == "" {
			return fmt.Errorf("badge %s: requirement_type is required", b.Code)
		}
		if b.RequirementValue <= 0 {
			return fmt.Errorf("badge %s: requirement_value must be positive", b.Code)
		}
		if b.Tier < 1 || b.Tier > 3 {
			return fmt.Errorf("badge %s: tier must be between 1 and 3", b.Code)
		}
	}
	return nil
}

// GetLocation returns the timezone location.
func (c *SchedulerConfig) GetLocation() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
