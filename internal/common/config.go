package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for psxgo
type Config struct {
	Clients ClientsConfig `toml:"clients"`
	Fetch   FetchConfig   `toml:"fetch"`
	Logging LoggingConfig `toml:"logging"`
}

// ClientsConfig holds per-source client configurations
type ClientsConfig struct {
	PSXAPI      PSXAPIConfig      `toml:"psx_api"`
	PSXWeb      PSXWebConfig      `toml:"psx_web"`
	TradingView TradingViewConfig `toml:"tradingview"`
}

// PSXAPIConfig holds direct PSX API configuration
type PSXAPIConfig struct {
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *PSXAPIConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// PSXWebConfig holds PSX website scrape configuration
type PSXWebConfig struct {
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *PSXWebConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// TradingViewConfig holds TradingView chart feed credentials.
// Username/password may also come from TV_USERNAME / TV_PASSWORD.
type TradingViewConfig struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
	Timeout  string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *TradingViewConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// FetchConfig holds batch fetch tuning
type FetchConfig struct {
	Workers int `toml:"workers"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `toml:"level"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Clients: ClientsConfig{
			PSXAPI: PSXAPIConfig{
				BaseURL:   "https://dps.psx.com.pk",
				RateLimit: 10,
				Timeout:   "30s",
			},
			PSXWeb: PSXWebConfig{
				BaseURL:   "https://dps.psx.com.pk",
				RateLimit: 5,
				Timeout:   "30s",
			},
			TradingView: TradingViewConfig{
				Timeout: "30s",
			},
		},
		Fetch: FetchConfig{
			Workers: 6,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
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
	if base := os.Getenv("PSXGO_BASE_URL"); base != "" {
		config.Clients.PSXAPI.BaseURL = base
		config.Clients.PSXWeb.BaseURL = base
	}

	if level := os.Getenv("PSXGO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if workers := os.Getenv("PSXGO_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			config.Fetch.Workers = w
		}
	}

	if user := os.Getenv("TV_USERNAME"); user != "" {
		config.Clients.TradingView.Username = user
	}
	if pass := os.Getenv("TV_PASSWORD"); pass != "" {
		config.Clients.TradingView.Password = pass
	}
}
