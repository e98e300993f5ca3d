// Package config loads server and CLI settings from defaults, an optional YAML file,
// an optional .env file and the environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Rate store backends
const (
	StoreBadger = "badger"
	StoreSQLite = "sqlite"
)

// Config holds every tunable of the server and ratectl
type Config struct {
	// HTTP server
	Port string `yaml:"port"`

	// Storage
	DataDir    string `yaml:"data_dir"`
	RateStore  string `yaml:"rate_store"`
	SQLitePath string `yaml:"sqlite_path"`

	// Upstream rates API
	RatesAPIURL  string        `yaml:"rates_api_url"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	FetchRetries int           `yaml:"fetch_retries"`

	// Refresh fan-out and read cache
	RefreshConcurrency int           `yaml:"refresh_concurrency"`
	RateCacheTTL       time.Duration `yaml:"rate_cache_ttl"`

	LogLevel string `yaml:"log_level"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Port:               "8080",
		DataDir:            "./data",
		RateStore:          StoreBadger,
		SQLitePath:         "./data/rates.db",
		RatesAPIURL:        "https://open.er-api.com/v6",
		FetchTimeout:       10 * time.Second,
		FetchRetries:       3,
		RefreshConcurrency: 8,
		RateCacheTTL:       15 * time.Minute,
		LogLevel:           "info",
	}
}

// LoadDotEnv loads KEY=VALUE files into the environment. Missing files are ignored;
// variables already set are never overwritten.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// Load builds a Config from defaults, the YAML file at path (skipped when empty)
// and the environment
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.RateStore = strings.ToLower(getEnv("RATE_STORE", c.RateStore))
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	c.RatesAPIURL = getEnv("RATES_API_URL", c.RatesAPIURL)
	c.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", c.FetchTimeout)
	c.FetchRetries = getEnvInt("FETCH_RETRIES", c.FetchRetries)
	c.RefreshConcurrency = getEnvInt("REFRESH_CONCURRENCY", c.RefreshConcurrency)
	c.RateCacheTTL = getEnvDuration("RATE_CACHE_TTL", c.RateCacheTTL)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// Validate validates the configuration and returns an error listing every problem
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.RateStore {
	case StoreBadger:
	case StoreSQLite:
		if c.SQLitePath == "" {
			problems = append(problems, "SQLite database path cannot be empty when using sqlite rate store")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid rate store '%s': must be one of [%s %s]", c.RateStore, StoreBadger, StoreSQLite))
	}

	if parsed, err := url.Parse(c.RatesAPIURL); err != nil {
		problems = append(problems, fmt.Sprintf("invalid rates API URL '%s': %v", c.RatesAPIURL, err))
	} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
		problems = append(problems, fmt.Sprintf("invalid rates API URL scheme '%s': must be 'http' or 'https'", parsed.Scheme))
	}

	if c.FetchTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("invalid fetch timeout %v: must be positive", c.FetchTimeout))
	}

	if c.FetchRetries < 1 || c.FetchRetries > 10 {
		problems = append(problems, fmt.Sprintf("invalid fetch retries %d: must be between 1 and 10", c.FetchRetries))
	}

	if c.RefreshConcurrency < 1 || c.RefreshConcurrency > 64 {
		problems = append(problems, fmt.Sprintf("invalid refresh concurrency %d: must be between 1 and 64", c.RefreshConcurrency))
	}

	if c.RateCacheTTL < 0 {
		problems = append(problems, fmt.Sprintf("invalid rate cache TTL %v: must not be negative", c.RateCacheTTL))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
