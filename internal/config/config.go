package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/irfndi/mto-floor-go/internal/engine"
	"github.com/irfndi/mto-floor-go/internal/feeds"
	"github.com/irfndi/mto-floor-go/internal/fusion"
	"github.com/irfndi/mto-floor-go/internal/resilience"
)

type Config struct {
	Environment    string                          `mapstructure:"environment"`
	LogLevel       string                          `mapstructure:"log_level"`
	Version        string                          `mapstructure:"version"`
	Server         ServerConfig                    `mapstructure:"server"`
	Redis          RedisConfig                     `mapstructure:"redis"`
	Telemetry      TelemetryConfig                 `mapstructure:"telemetry"`
	Feeds          FeedsConfig                     `mapstructure:"feeds"`
	Cache          CacheConfig                     `mapstructure:"cache"`
	Fusion         FusionConfig                    `mapstructure:"fusion"`
	Engine         engine.Params                   `mapstructure:"engine"`
	CircuitBreaker resilience.CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	DefaultTimeZone string        `mapstructure:"default_time_zone"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// AdminAPIKey guards the admin routes. Empty disables them.
	AdminAPIKey string `mapstructure:"admin_api_key" json:"-"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// TelemetryConfig selects the trace and log exporters. Exporter is one of
// otlp, stdout or none.
type TelemetryConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	Exporter     string  `mapstructure:"exporter"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	Insecure     bool    `mapstructure:"insecure"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	ExportLogs   bool    `mapstructure:"export_logs"`
}

type FeedsConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	Retry     RetryConfig   `mapstructure:"retry"`
	ESPN      ESPNConfig    `mapstructure:"espn"`
	OddsAPI   OddsAPIConfig `mapstructure:"oddsapi"`
}

type RetryConfig struct {
	Attempts   int           `mapstructure:"attempts"`
	Backoff    time.Duration `mapstructure:"backoff"`
	MaxBackoff time.Duration `mapstructure:"max_backoff"`
}

type ESPNConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type OddsAPIConfig struct {
	BaseURL    string   `mapstructure:"base_url"`
	APIKey     string   `mapstructure:"api_key" json:"-" yaml:"-"`
	Regions    string   `mapstructure:"regions"`
	Bookmakers []string `mapstructure:"bookmakers"`
}

// CacheConfig selects the cache backend (memory or redis) and entry TTLs.
type CacheConfig struct {
	Backend         string        `mapstructure:"backend"`
	KeyPrefix       string        `mapstructure:"key_prefix"`
	FeedTTL         time.Duration `mapstructure:"feed_ttl"`
	PredictionTTL   time.Duration `mapstructure:"prediction_ttl"`
	TeamStatsTTL    time.Duration `mapstructure:"team_stats_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type FusionConfig struct {
	Bucket time.Duration `mapstructure:"bucket"`
}

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Bind specific environment variables
	if err := viper.BindEnv("feeds.oddsapi.api_key", "ODDS_API_KEY", "ODDSAPI_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind ODDS_API_KEY environment variable: %w", err)
	}
	if err := viper.BindEnv("server.admin_api_key", "ADMIN_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind ADMIN_API_KEY environment variable: %w", err)
	}
	if err := viper.BindEnv("telemetry.otlp_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT"); err != nil {
		return nil, fmt.Errorf("failed to bind OTEL_EXPORTER_OTLP_ENDPOINT environment variable: %w", err)
	}

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.normalize(); err != nil {
		return nil, err
	}
	return &config, nil
}

// normalize validates the loaded values and applies bounds.
func (c *Config) normalize() error {
	c.Environment = strings.ToLower(c.Environment)

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if _, err := time.LoadLocation(c.Server.DefaultTimeZone); err != nil {
		return fmt.Errorf("invalid default time zone %q: %w", c.Server.DefaultTimeZone, err)
	}

	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	switch c.Cache.Backend {
	case CacheBackendMemory, CacheBackendRedis:
	default:
		return fmt.Errorf("cache backend must be %q or %q, got %q", CacheBackendMemory, CacheBackendRedis, c.Cache.Backend)
	}
	if c.Cache.FeedTTL <= 0 || c.Cache.PredictionTTL <= 0 {
		return errors.New("cache TTLs must be positive")
	}

	if c.Fusion.Bucket < fusion.MinBucket || c.Fusion.Bucket > fusion.MaxBucket {
		return fmt.Errorf("fusion bucket must be between %s and %s, got %s", fusion.MinBucket, fusion.MaxBucket, c.Fusion.Bucket)
	}

	c.Feeds.Timeout = feeds.ClampTimeout(c.Feeds.Timeout)
	if c.Feeds.Retry.Attempts < 1 {
		return fmt.Errorf("feed retry attempts must be at least 1, got %d", c.Feeds.Retry.Attempts)
	}
	c.Feeds.OddsAPI.APIKey = strings.TrimSpace(c.Feeds.OddsAPI.APIKey)
	c.Server.AdminAPIKey = strings.TrimSpace(c.Server.AdminAPIKey)
	c.Feeds.OddsAPI.Bookmakers = splitList(c.Feeds.OddsAPI.Bookmakers)

	switch c.Telemetry.Exporter {
	case "otlp", "stdout", "none":
	default:
		return fmt.Errorf("telemetry exporter must be otlp, stdout or none, got %q", c.Telemetry.Exporter)
	}

	c.Engine = c.Engine.WithDefaults()
	return nil
}

// RetryPolicy converts the retry section into a feed retry policy.
func (c FeedsConfig) RetryPolicy() resilience.RetryPolicy {
	return resilience.RetryPolicy{
		Attempts:  c.Retry.Attempts,
		BaseDelay: c.Retry.Backoff,
		MaxDelay:  c.Retry.MaxBackoff,
		Retryable: feeds.IsRetryable,
	}
}

// RedisAddr returns host:port.
func (c RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// splitList flattens comma-joined entries that arrive from environment variables.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("version", "dev")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	viper.SetDefault("server.default_time_zone", "America/New_York")
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.shutdown_timeout", "10s")
	viper.SetDefault("server.admin_api_key", "")

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Telemetry
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.exporter", "none")
	viper.SetDefault("telemetry.otlp_endpoint", "localhost:4318")
	viper.SetDefault("telemetry.insecure", true)
	viper.SetDefault("telemetry.service_name", "mto-floor-api")
	viper.SetDefault("telemetry.sample_ratio", 1.0)
	viper.SetDefault("telemetry.export_logs", false)

	// Feeds
	viper.SetDefault("feeds.timeout", "10s")
	viper.SetDefault("feeds.user_agent", "mto-floor-go/1.0")
	viper.SetDefault("feeds.retry.attempts", 2)
	viper.SetDefault("feeds.retry.backoff", "350ms")
	viper.SetDefault("feeds.retry.max_backoff", "2s")
	viper.SetDefault("feeds.espn.base_url", "https://site.api.espn.com/apis/site/v2/sports")
	viper.SetDefault("feeds.oddsapi.base_url", "https://api.the-odds-api.com")
	viper.SetDefault("feeds.oddsapi.api_key", "")
	viper.SetDefault("feeds.oddsapi.regions", "us")
	viper.SetDefault("feeds.oddsapi.bookmakers", []string{"betmgm", "fanduel", "draftkings", "pointsbet"})

	// Cache
	viper.SetDefault("cache.backend", CacheBackendMemory)
	viper.SetDefault("cache.key_prefix", "mto:")
	viper.SetDefault("cache.feed_ttl", "2m")
	viper.SetDefault("cache.prediction_ttl", "5m")
	viper.SetDefault("cache.team_stats_ttl", "10m")
	viper.SetDefault("cache.cleanup_interval", "1m")

	// Fusion
	viper.SetDefault("fusion.bucket", "30m")

	// Engine; anything left unset falls back to engine.DefaultParams
	viper.SetDefault("engine.default_floor_quantile", 0.05)
	viper.SetDefault("engine.market_cap_pct", 0.80)
	viper.SetDefault("engine.default_stay_away_margin", 4)
	viper.SetDefault("engine.trailing_games", 5)
	viper.SetDefault("engine.early_season_games", 5)
	viper.SetDefault("engine.blend.min_weight", 0.05)
	viper.SetDefault("engine.blend.max_weight", 0.30)
	viper.SetDefault("engine.blend.max_shift_pct", 0.20)

	// Circuit breaker
	viper.SetDefault("circuit_breaker.failure_threshold", 5)
	viper.SetDefault("circuit_breaker.success_threshold", 1)
	viper.SetDefault("circuit_breaker.timeout", "30s")
	viper.SetDefault("circuit_breaker.max_requests", 1)
	viper.SetDefault("circuit_breaker.reset_timeout", "60s")
}
