// Package config loads CLI configuration from flags, environment and an
// optional YAML file through viper.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jmcleod/optiva/auth"
	redisstorage "github.com/jmcleod/optiva/storage/redis"
)

// EnvPrefix is prepended to every environment override, e.g. OPTIVA_API_URL.
const EnvPrefix = "OPTIVA"

// Storage backends.
const (
	StoreBolt     = "bbolt"
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config is the resolved CLI configuration.
type Config struct {
	APIURL         string              `mapstructure:"api_url"`
	Profile        string              `mapstructure:"profile"`
	DataDir        string              `mapstructure:"data_dir"`
	Store          string              `mapstructure:"store"`
	Redis          redisstorage.Config `mapstructure:"redis"`
	Postgres       PostgresConfig      `mapstructure:"postgres"`
	Passphrase     string              `mapstructure:"passphrase"`
	StorageKey     string              `mapstructure:"storage_key"`
	RefreshTimeout time.Duration       `mapstructure:"refresh_timeout"`
	CacheTTL       time.Duration       `mapstructure:"cache_ttl"`
	LogLevel       string              `mapstructure:"log_level"`
	LogFormat      string              `mapstructure:"log_format"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// DefaultDataDir is ~/.optiva, or ./.optiva when the home directory is
// unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".optiva"
	}
	return filepath.Join(home, ".optiva")
}

// SetDefaults registers every key so that AutomaticEnv can override it
// during Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api_url", "http://localhost:8080")
	v.SetDefault("profile", "default")
	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("store", StoreBolt)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.username", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("passphrase", "")
	v.SetDefault("storage_key", "")
	v.SetDefault("refresh_timeout", auth.DefaultRefreshTimeout)
	v.SetDefault("cache_ttl", 30*time.Second)
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "text")
}

// Load reads configuration into a Config. path names an explicit config
// file; when empty, config.yaml is looked up in the data directory and the
// working directory, and its absence is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(v.GetString("data_dir"))
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := errors.AsType[viper.ConfigFileNotFoundError](err); path != "" || !notFound {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreBolt, StoreMemory, StoreRedis:
	case StorePostgres:
		if c.Postgres.DSN == "" {
			return errors.New("postgres store requires postgres.dsn")
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.Passphrase != "" && c.StorageKey != "" {
		return errors.New("passphrase and storage_key are mutually exclusive")
	}
	if c.Profile == "" {
		return errors.New("profile must not be empty")
	}
	if c.RefreshTimeout <= 0 {
		return fmt.Errorf("refresh_timeout must be positive, got %s", c.RefreshTimeout)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log_format %q", c.LogFormat)
	}
	return nil
}

// NewLogger builds the process logger from LogLevel and LogFormat.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log_level %q", s)
	}
	return level, nil
}
