// Package config loads service settings from defaults, an optional YAML
// file, .env files and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variable names
const (
	EnvPort             = "PORT"
	EnvGinMode          = "GIN_MODE"
	EnvDevMode          = "DEV_MODE"
	EnvDataDir          = "CGS_DATA_DIR"
	EnvCacheTTL         = "CGS_CACHE_TTL"
	EnvRateLimit        = "CGS_RATE_LIMIT"
	EnvRateBurst        = "CGS_RATE_BURST"
	EnvFetchRetries     = "CGS_FETCH_RETRIES"
	EnvFetchTimeout     = "CGS_FETCH_TIMEOUT"
	EnvLanguages        = "CGS_LANGUAGES"
	EnvMaxDocumentBytes = "CGS_MAX_DOCUMENT_BYTES"
)

// Config holds every runtime setting of the service
type Config struct {
	Port             string        `yaml:"port"`
	GinMode          string        `yaml:"gin_mode"`
	DevMode          bool          `yaml:"dev_mode"`
	DataDir          string        `yaml:"data_dir"`
	CacheTTL         time.Duration `yaml:"cache_ttl"`
	MaxCacheSize     int           `yaml:"max_cache_size"`
	CleanupInterval  time.Duration `yaml:"cleanup_interval"`
	RateLimit        float64       `yaml:"rate_limit"`
	RateBurst        float64       `yaml:"rate_burst"`
	MaxDocumentBytes int           `yaml:"max_document_bytes"`
	Languages        []string      `yaml:"languages"`
	Parallel         bool          `yaml:"parallel"`
	Fetch            FetchConfig   `yaml:"fetch"`
}

// FetchConfig controls the remote document fetcher
type FetchConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	BaseBackoff time.Duration `yaml:"base_backoff"`
	MaxBackoff  time.Duration `yaml:"max_backoff"`
	UserAgent   string        `yaml:"user_agent"`
	MaxBytes    int64         `yaml:"max_bytes"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Port:             "8082",
		GinMode:          "release",
		DataDir:          "data",
		CacheTTL:         30 * time.Minute,
		MaxCacheSize:     1000,
		CleanupInterval:  5 * time.Minute,
		RateLimit:        2,
		RateBurst:        5,
		MaxDocumentBytes: 2 << 20,
		Languages:        []string{"en", "es", "fr", "de", "pt", "it"},
		Fetch: FetchConfig{
			Timeout:     15 * time.Second,
			MaxRetries:  3,
			BaseBackoff: 500 * time.Millisecond,
			MaxBackoff:  8 * time.Second,
			UserAgent:   "CGSAnalyzer/1.0",
			MaxBytes:    10 << 20,
		},
	}
}

// Load builds the configuration. A missing YAML file is not an error;
// an empty path skips the file entirely.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	loadEnvFiles()

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func loadEnvFiles() {
	// Try .env.development first for local development
	if err := godotenv.Load(".env.development"); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found, using environment variables")
		}
	}
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvPort); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv(EnvGinMode); v != "" {
		cfg.GinMode = v
	}
	if v := os.Getenv(EnvDevMode); v != "" {
		cfg.DevMode = v == "true"
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv(EnvCacheTTL); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvCacheTTL, err)
		}
		cfg.CacheTTL = d
	}
	if v := os.Getenv(EnvRateLimit); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvRateLimit, err)
		}
		cfg.RateLimit = f
	}
	if v := os.Getenv(EnvRateBurst); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvRateBurst, err)
		}
		cfg.RateBurst = f
	}
	if v := os.Getenv(EnvFetchRetries); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvFetchRetries, err)
		}
		cfg.Fetch.MaxRetries = n
	}
	if v := os.Getenv(EnvFetchTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvFetchTimeout, err)
		}
		cfg.Fetch.Timeout = d
	}
	if v, ok := os.LookupEnv(EnvLanguages); ok {
		cfg.Languages = splitList(v)
	}
	if v := os.Getenv(EnvMaxDocumentBytes); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMaxDocumentBytes, err)
		}
		cfg.MaxDocumentBytes = n
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}

// Validate rejects settings the service cannot run with
func (c Config) Validate() error {
	switch {
	case c.Port == "":
		return errors.New("port must not be empty")
	case c.CacheTTL <= 0:
		return errors.New("cache_ttl must be positive")
	case c.MaxCacheSize <= 0:
		return errors.New("max_cache_size must be positive")
	case c.CleanupInterval <= 0:
		return errors.New("cleanup_interval must be positive")
	case c.RateLimit <= 0 || c.RateBurst < 1:
		return errors.New("rate_limit must be positive and rate_burst at least 1")
	case c.MaxDocumentBytes <= 0:
		return errors.New("max_document_bytes must be positive")
	case c.Fetch.Timeout <= 0:
		return errors.New("fetch.timeout must be positive")
	case c.Fetch.MaxRetries < 0:
		return errors.New("fetch.max_retries must not be negative")
	case c.Fetch.BaseBackoff <= 0 || c.Fetch.MaxBackoff < c.Fetch.BaseBackoff:
		return errors.New("fetch backoff must be positive and max_backoff >= base_backoff")
	}
	return nil
}
