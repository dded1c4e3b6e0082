package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

//go:embed config.example.toml
var exampleConf []byte

// EnvPrefix is the prefix for environment variables that override file configuration.
const EnvPrefix = "PLMIRROR"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Sync     SyncConfig     `toml:"sync"`
	Locks    LocksConfig    `toml:"locks"`
	Log      LogConfig      `toml:"log"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path          string `toml:"path" envconfig:"DATABASE_PATH"`
	MaxOpenConns  int    `toml:"max_open_conns" envconfig:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns  int    `toml:"max_idle_conns" envconfig:"DATABASE_MAX_IDLE_CONNS"`
	BusyTimeoutMS int    `toml:"busy_timeout_ms" envconfig:"DATABASE_BUSY_TIMEOUT_MS"`
}

// ServerConfig contains HTTP server settings.
//
// RateLimit is requests per second per client address; zero disables limiting.
type ServerConfig struct {
	Host           string   `toml:"host" envconfig:"SERVER_HOST"`
	Port           int      `toml:"port" envconfig:"SERVER_PORT"`
	RateLimit      float64  `toml:"rate_limit" envconfig:"SERVER_RATE_LIMIT"`
	RateBurst      int      `toml:"rate_burst" envconfig:"SERVER_RATE_BURST"`
	AllowedOrigins []string `toml:"allowed_origins" envconfig:"SERVER_ALLOWED_ORIGINS"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SyncConfig controls reconciliation policies.
type SyncConfig struct {
	SanitizeOnImport bool `toml:"sanitize_on_import" envconfig:"SYNC_SANITIZE_ON_IMPORT"`
	SanitizeOnSync   bool `toml:"sanitize_on_sync" envconfig:"SYNC_SANITIZE_ON_SYNC"`
	StrictOwnership  bool `toml:"strict_ownership" envconfig:"SYNC_STRICT_OWNERSHIP"`
}

// LocksConfig selects the per-playlist lock backend.
type LocksConfig struct {
	Backend   string `toml:"backend" envconfig:"LOCKS_BACKEND"`
	RedisAddr string `toml:"redis_addr" envconfig:"LOCKS_REDIS_ADDR"`
	TTL       string `toml:"ttl" envconfig:"LOCKS_TTL"`
}

// TTLDuration parses TTL, falling back to 30 seconds when unset.
func (l LocksConfig) TTLDuration() (time.Duration, error) {
	if l.TTL == "" {
		return 30 * time.Second, nil
	}
	d, err := time.ParseDuration(l.TTL)
	if err != nil {
		return 0, fmt.Errorf("%w: locks.ttl: %v", ErrInvalidConfig, err)
	}
	return d, nil
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level" envconfig:"LOG_LEVEL"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides config values with PLMIRROR_* environment variables.
//
// Unset variables leave the file values untouched.
func ApplyEnv(config *Config) error {
	sections := []struct {
		name   string
		target any
	}{
		{"database", &config.Database},
		{"server", &config.Server},
		{"sync", &config.Sync},
		{"locks", &config.Locks},
		{"log", &config.Log},
	}
	for _, s := range sections {
		if err := envconfig.Process(EnvPrefix, s.target); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, s.name, err)
		}
	}
	return nil
}

// Validate checks the configuration for values the application cannot run with.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path is required", ErrInvalidConfig)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("%w: server.rate_limit must not be negative", ErrInvalidConfig)
	}

	switch c.Locks.Backend {
	case "", "memory":
	case "redis":
		if c.Locks.RedisAddr == "" {
			return fmt.Errorf("%w: locks.redis_addr is required for the redis backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown locks.backend %q", ErrInvalidConfig, c.Locks.Backend)
	}

	if _, err := c.Locks.TTLDuration(); err != nil {
		return err
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}
