package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Janitor    JanitorConfig    `yaml:"janitor"`
	Watcher    WatcherConfig    `yaml:"watcher"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int      `yaml:"port" env:"QT_PORT"`
	RequestIPHeader string   `yaml:"request_ip_header" env:"QT_REQUEST_IP_HEADER"`
	RateLimitPerSec float64  `yaml:"rate_limit_per_sec" env:"QT_RATE_LIMIT_PER_SEC"`
	RateLimitBurst  int      `yaml:"rate_limit_burst" env:"QT_RATE_LIMIT_BURST"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds" env:"QT_CACHE_TTL_SECONDS"`
	AllowedOrigins  []string `yaml:"allowed_origins" env:"QT_ALLOWED_ORIGINS" env-separator:","`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver" env:"QT_DB_DRIVER"` // postgres or sqlite
	DSN                    string `yaml:"dsn" env:"QT_DB_DSN"`
	MaxOpenConns           int    `yaml:"max_open_conns" env:"QT_DB_MAX_OPEN_CONNS"`
	MaxIdleConns           int    `yaml:"max_idle_conns" env:"QT_DB_MAX_IDLE_CONNS"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes" env:"QT_DB_CONN_MAX_LIFETIME_MINUTES"`
	LogLevel               string `yaml:"log_level" env:"QT_DB_LOG_LEVEL"` // silent, error, warn, info
}

// AuthConfig controls anonymous token issuance.
type AuthConfig struct {
	TokenTTLMinutes int           `yaml:"token_ttl_minutes" env:"QT_TOKEN_TTL_MINUTES"`
	TokenTTL        time.Duration `yaml:"-"`
	CacheTTLSeconds int           `yaml:"cache_ttl_seconds" env:"QT_TOKEN_CACHE_TTL_SECONDS"`
}

// JanitorConfig holds the expired-user cleanup configuration.
type JanitorConfig struct {
	Enabled         bool          `yaml:"enabled" env:"QT_JANITOR_ENABLED"`
	IntervalSeconds int           `yaml:"interval_seconds" env:"QT_JANITOR_INTERVAL_SECONDS"`
	Interval        time.Duration `yaml:"-"`
}

// WatcherConfig holds the lapse watcher configuration.
type WatcherConfig struct {
	Enabled         bool          `yaml:"enabled" env:"QT_WATCHER_ENABLED"`
	IntervalSeconds int           `yaml:"interval_seconds" env:"QT_WATCHER_INTERVAL_SECONDS"`
	Interval        time.Duration `yaml:"-"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key" env:"QT_VAPID_PUBLIC_KEY"`
	PrivateKey string `yaml:"vapid_private_key" env:"QT_VAPID_PRIVATE_KEY"`
	Subject    string `yaml:"subject" env:"QT_VAPID_SUBJECT"`
	TTL        int    `yaml:"ttl" env:"QT_PUSH_TTL"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size" env:"QT_WORKER_POOL_SIZE"`
}

// LogConfig selects the zap logger level and encoding.
type LogConfig struct {
	Level  string `yaml:"level" env:"QT_LOG_LEVEL"`
	Format string `yaml:"format" env:"QT_LOG_FORMAT"` // json or console
}

// Load reads the configuration from the given path, then applies
// environment overrides and defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}

	if cfg.Auth.TokenTTLMinutes <= 0 {
		cfg.Auth.TokenTTLMinutes = 60
	}
	cfg.Auth.TokenTTL = time.Duration(cfg.Auth.TokenTTLMinutes) * time.Minute
	if cfg.Auth.CacheTTLSeconds <= 0 {
		cfg.Auth.CacheTTLSeconds = 30
	}

	if cfg.Janitor.IntervalSeconds <= 0 {
		cfg.Janitor.IntervalSeconds = 600
	}
	cfg.Janitor.Interval = time.Duration(cfg.Janitor.IntervalSeconds) * time.Second

	if cfg.Watcher.IntervalSeconds <= 0 {
		cfg.Watcher.IntervalSeconds = 15
	}
	cfg.Watcher.Interval = time.Duration(cfg.Watcher.IntervalSeconds) * time.Second

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}
