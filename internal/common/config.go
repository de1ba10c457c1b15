package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for lotfolio
type Config struct {
	Environment      string         `toml:"environment"`
	DefaultPortfolio string         `toml:"default_portfolio"`
	Server           ServerConfig   `toml:"server"`
	Storage          StorageConfig  `toml:"storage"`
	Clients          ClientsConfig  `toml:"clients"`
	Prices           PricesConfig   `toml:"prices"`
	Timeline         TimelineConfig `toml:"timeline"`
	Logging          LoggingConfig  `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig selects and configures the ledger store.
type StorageConfig struct {
	Backend   string `toml:"backend"`  // "surrealdb", "file" or "memory"
	Path      string `toml:"path"`     // file backend root
	Versions  int    `toml:"versions"` // file backend: previous ledger versions kept
	Address   string `toml:"address"`  // surrealdb: ws://host:port/rpc
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// ClientsConfig holds price provider configuration
type ClientsConfig struct {
	Provider string         `toml:"provider"` // "fmp" or "eodhd"
	FMP      ProviderConfig `toml:"fmp"`
	EODHD    ProviderConfig `toml:"eodhd"`
}

// ProviderConfig holds one market data API's settings
type ProviderConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *ProviderConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// PricesConfig controls the price series fetcher
type PricesConfig struct {
	MaxConcurrent int    `toml:"max_concurrent"`
	CacheTTL      string `toml:"cache_ttl"`
}

// GetCacheTTL parses the cache TTL. A zero or negative value disables the cache.
func (c *PricesConfig) GetCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil {
		return FreshnessPriceSeries
	}
	return d
}

// TimelineConfig holds valuation timeline settings
type TimelineConfig struct {
	Palette []string `toml:"palette"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment:      "development",
		DefaultPortfolio: "default",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Backend:   "file",
			Path:      "data",
			Versions:  3,
			Address:   "ws://localhost:8000/rpc",
			Namespace: "lotfolio",
			Database:  "lotfolio",
			Username:  "root",
			Password:  "root",
		},
		Clients: ClientsConfig{
			Provider: "fmp",
			FMP: ProviderConfig{
				BaseURL:   "https://financialmodelingprep.com/api/v3",
				RateLimit: 5,
				Timeout:   "30s",
			},
			EODHD: ProviderConfig{
				BaseURL:   "https://eodhd.com/api",
				RateLimit: 10,
				Timeout:   "30s",
			},
		},
		Prices: PricesConfig{
			MaxConcurrent: 8,
			CacheTTL:      "12h",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("LOTFOLIO_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("LOTFOLIO_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("LOTFOLIO_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("LOTFOLIO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if dp := os.Getenv("LOTFOLIO_DEFAULT_PORTFOLIO"); dp != "" {
		config.DefaultPortfolio = dp
	}

	// Storage
	if v := os.Getenv("LOTFOLIO_STORAGE_BACKEND"); v != "" {
		config.Storage.Backend = strings.ToLower(v)
	}
	if path := os.Getenv("LOTFOLIO_DATA_PATH"); path != "" {
		config.Storage.Path = filepath.Clean(path)
	}
	if v := os.Getenv("LOTFOLIO_STORAGE_ADDRESS"); v != "" {
		config.Storage.Address = v
	}
	if v := os.Getenv("LOTFOLIO_STORAGE_USERNAME"); v != "" {
		config.Storage.Username = v
	}
	if v := os.Getenv("LOTFOLIO_STORAGE_PASSWORD"); v != "" {
		config.Storage.Password = v
	}

	// Price provider
	if v := os.Getenv("LOTFOLIO_PRICE_PROVIDER"); v != "" {
		config.Clients.Provider = strings.ToLower(v)
	}
	if key := ResolveAPIKey("fmp_api_key", ""); key != "" {
		config.Clients.FMP.APIKey = key
	}
	if key := ResolveAPIKey("eodhd_api_key", ""); key != "" {
		config.Clients.EODHD.APIKey = key
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ActiveProvider returns the selected provider name and its settings.
func (c *Config) ActiveProvider() (string, ProviderConfig) {
	switch strings.ToLower(c.Clients.Provider) {
	case "eodhd":
		return "eodhd", c.Clients.EODHD
	default:
		return "fmp", c.Clients.FMP
	}
}

// ResolveAPIKey returns an API key from the environment, then the fallback.
func ResolveAPIKey(name string, fallback string) string {
	keyToEnvMapping := map[string][]string{
		"fmp_api_key":   {"FMP_API_KEY", "LOTFOLIO_FMP_API_KEY"},
		"eodhd_api_key": {"EODHD_API_KEY", "LOTFOLIO_EODHD_API_KEY"},
	}

	for _, envVarName := range keyToEnvMapping[name] {
		if envValue := os.Getenv(envVarName); envValue != "" {
			return envValue
		}
	}
	return fallback
}
