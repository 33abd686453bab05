package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
)

// Environment variables read by LoadConfig
const (
	EnvDatabaseURL  = "HARNESS_SESSION_DB"
	EnvCacheDir     = "HARNESS_SESSION_CACHE_DIR"
	EnvPollInterval = "HARNESS_SESSION_POLL_INTERVAL"
	EnvLogLevel     = "HARNESS_SESSION_LOG_LEVEL"
	EnvTable        = "HARNESS_SESSION_TABLE"
)

const (
	// MinPollInterval is roughly one frame at 60fps
	MinPollInterval     = 16 * time.Millisecond
	DefaultPollInterval = 100 * time.Millisecond
)

// Config is the resolved runtime configuration
type Config struct {
	DatabaseURL  string
	CacheDir     string
	PollInterval time.Duration
	LogLevel     string
	Table        string
	// Source lists where values came from, lowest precedence first
	Source []string
}

// fileConfig mirrors the JSONC config file
type fileConfig struct {
	DatabaseURL  string `json:"database_url"`
	CacheDir     string `json:"cache_dir"`
	PollInterval string `json:"poll_interval"`
	LogLevel     string `json:"log_level"`
	Table        string `json:"table"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		DatabaseURL:  DefaultDatabasePath(),
		CacheDir:     DefaultCacheDir(),
		PollInterval: DefaultPollInterval,
		LogLevel:     "info",
		Table:        DefaultTable,
		Source:       []string{"defaults"},
	}
}

// ClampPollInterval enforces MinPollInterval
func ClampPollInterval(d time.Duration) time.Duration {
	if d < MinPollInterval {
		return MinPollInterval
	}
	return d
}

// LoadConfig resolves configuration. Precedence, lowest first: defaults,
// .env in the working directory, the JSONC config file, the process
// environment. An empty path means DefaultConfigPath, which may be absent;
// an explicit path must exist.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if dotenv, err := godotenv.Read(".env"); err == nil {
		if err := cfg.apply(dotenv); err != nil {
			return nil, &ConfigError{Path: ".env", Err: err}
		}
		cfg.Source = append(cfg.Source, ".env")
	}

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, &ConfigError{Path: path, Err: err}
			}
		} else {
			cfg.Source = append(cfg.Source, path)
		}
	}

	env := make(map[string]string)
	for _, key := range []string{EnvDatabaseURL, EnvCacheDir, EnvPollInterval, EnvLogLevel, EnvTable} {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}
	if len(env) > 0 {
		if err := cfg.apply(env); err != nil {
			return nil, &ConfigError{Path: "environment", Err: err}
		}
		cfg.Source = append(cfg.Source, "environment")
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := json.Unmarshal(jsonc.ToJSON(data), &fc); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	return c.apply(map[string]string{
		EnvDatabaseURL:  fc.DatabaseURL,
		EnvCacheDir:     fc.CacheDir,
		EnvPollInterval: fc.PollInterval,
		EnvLogLevel:     fc.LogLevel,
		EnvTable:        fc.Table,
	})
}

// apply overlays non-empty values keyed by environment variable name
func (c *Config) apply(values map[string]string) error {
	if v := values[EnvDatabaseURL]; v != "" {
		c.DatabaseURL = v
	}
	if v := values[EnvCacheDir]; v != "" {
		c.CacheDir = v
	}
	if v := values[EnvPollInterval]; v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid poll interval %q: %w", v, err)
		}
		c.PollInterval = ClampPollInterval(d)
	}
	if v := values[EnvLogLevel]; v != "" {
		c.LogLevel = v
	}
	if v := values[EnvTable]; v != "" {
		if err := ValidateTableName(v); err != nil {
			return err
		}
		c.Table = v
	}
	return nil
}
