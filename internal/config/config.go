package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Tailscale  TailscaleConfig  `yaml:"tailscale"`
	Log        LogConfig        `yaml:"log"`
	LocalStore LocalStoreConfig `yaml:"local_store"`
	Session    SessionConfig    `yaml:"session"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text, json or tint
}

type LocalStoreConfig struct {
	Driver    string `yaml:"driver"` // sqlite, redis or memory
	Path      string `yaml:"path"`
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
}

type SessionConfig struct {
	AutosaveDebounce  time.Duration `yaml:"autosave_debounce"`
	RecoveryStaleness time.Duration `yaml:"recovery_staleness"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	CaloriesPerMinute float64       `yaml:"calories_per_minute"`
	Timezone          string        `yaml:"timezone"`
	HistoryScope      string        `yaml:"history_scope"` // routine or global
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Location resolves the configured timezone. Empty means UTC.
func (s SessionConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(s.Timezone)
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix LIFTLOG_ and underscore-separated paths:
//
//	LIFTLOG_SERVER_HOST, LIFTLOG_SERVER_PORT,
//	LIFTLOG_DB_HOST, LIFTLOG_DB_PORT, LIFTLOG_DB_NAME,
//	LIFTLOG_DB_USER, LIFTLOG_DB_PASSWORD, LIFTLOG_DB_SSLMODE,
//	LIFTLOG_AUTH_API_KEY, LIFTLOG_TAILSCALE_ENABLED,
//	LIFTLOG_LOG_LEVEL, LIFTLOG_LOG_FORMAT,
//	LIFTLOG_LOCAL_STORE_DRIVER, LIFTLOG_LOCAL_STORE_PATH, LIFTLOG_REDIS_ADDR,
//	LIFTLOG_SESSION_TIMEZONE, LIFTLOG_SESSION_AUTOSAVE_DEBOUNCE
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LIFTLOG_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("LIFTLOG_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LIFTLOG_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("LIFTLOG_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("LIFTLOG_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("LIFTLOG_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("LIFTLOG_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("LIFTLOG_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("LIFTLOG_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("LIFTLOG_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	if v := os.Getenv("LIFTLOG_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LIFTLOG_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("LIFTLOG_LOCAL_STORE_DRIVER"); v != "" {
		cfg.LocalStore.Driver = v
	}
	if v := os.Getenv("LIFTLOG_LOCAL_STORE_PATH"); v != "" {
		cfg.LocalStore.Path = v
	}
	if v := os.Getenv("LIFTLOG_REDIS_ADDR"); v != "" {
		cfg.LocalStore.RedisAddr = v
	}
	if v := os.Getenv("LIFTLOG_SESSION_TIMEZONE"); v != "" {
		cfg.Session.Timezone = v
	}
	if v := os.Getenv("LIFTLOG_SESSION_AUTOSAVE_DEBOUNCE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Session.AutosaveDebounce = d
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.LocalStore.Driver == "" {
		cfg.LocalStore.Driver = "sqlite"
	}
	if cfg.LocalStore.Path == "" {
		cfg.LocalStore.Path = "data"
	}
	if cfg.Session.AutosaveDebounce == 0 {
		cfg.Session.AutosaveDebounce = 2 * time.Second
	}
	if cfg.Session.RecoveryStaleness == 0 {
		cfg.Session.RecoveryStaleness = 24 * time.Hour
	}
	if cfg.Session.IdleTimeout == 0 {
		cfg.Session.IdleTimeout = 6 * time.Hour
	}
	if cfg.Session.CaloriesPerMinute == 0 {
		cfg.Session.CaloriesPerMinute = 8
	}
	if cfg.Session.HistoryScope == "" {
		cfg.Session.HistoryScope = "routine"
	}
	if cfg.Tailscale.Hostname == "" {
		cfg.Tailscale.Hostname = "liftlog"
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Auth.APIKey == "" && !c.Tailscale.Enabled {
		return fmt.Errorf("auth.api_key is required")
	}
	switch c.LocalStore.Driver {
	case "sqlite", "memory":
	case "redis":
		if c.LocalStore.RedisAddr == "" {
			return fmt.Errorf("local_store.redis_addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("local_store.driver %q is not one of sqlite, redis, memory", c.LocalStore.Driver)
	}
	switch c.Session.HistoryScope {
	case "routine", "global":
	default:
		return fmt.Errorf("session.history_scope %q is not one of routine, global", c.Session.HistoryScope)
	}
	if c.Session.AutosaveDebounce < 0 || c.Session.RecoveryStaleness < 0 {
		return fmt.Errorf("session durations must not be negative")
	}
	if _, err := c.Session.Location(); err != nil {
		return fmt.Errorf("session.timezone: %w", err)
	}
	return nil
}
