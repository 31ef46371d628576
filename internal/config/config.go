// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ashureev/shiftbot/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string

	Exchange ExchangeConfig
	Monitor  MonitorConfig
}

// ExchangeConfig holds the exchange API settings.
type ExchangeConfig struct {
	BaseURL        string
	Secret         string
	AffiliateID    string
	CommissionRate string
	Timeout        time.Duration
	CatalogTTL     time.Duration
}

// MonitorConfig controls the background workers.
type MonitorConfig struct {
	SwapInterval    time.Duration
	AlertInterval   time.Duration
	TrackerInterval time.Duration
	TrackedPairs    []domain.Pair
	Retention       time.Duration
	SweepInterval   time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	pairs, err := parsePairs(getEnv("TRACKED_PAIRS", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/shiftbot.db"),
		Exchange: ExchangeConfig{
			BaseURL:        getEnv("SIDESHIFT_BASE_URL", "https://sideshift.ai/api/v2"),
			Secret:         getEnv("SIDESHIFT_SECRET", ""),
			AffiliateID:    getEnv("SIDESHIFT_AFFILIATE_ID", ""),
			CommissionRate: getEnv("SIDESHIFT_COMMISSION_RATE", "0.5"),
			Timeout:        getEnvDuration("SIDESHIFT_TIMEOUT", 30*time.Second),
			CatalogTTL:     getEnvDuration("CATALOG_TTL", time.Hour),
		},
		Monitor: MonitorConfig{
			SwapInterval:    getEnvDuration("SWAP_MONITOR_INTERVAL", 30*time.Second),
			AlertInterval:   getEnvDuration("ALERT_INTERVAL", 5*time.Minute),
			TrackerInterval: getEnvDuration("TRACKER_INTERVAL", 5*time.Minute),
			TrackedPairs:    pairs,
			Retention:       getEnvDuration("RATE_RETENTION", 30*24*time.Hour),
			SweepInterval:   getEnvDuration("SWEEP_INTERVAL", time.Hour),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Exchange.BaseURL == "" {
		return fmt.Errorf("SIDESHIFT_BASE_URL cannot be empty")
	}
	if c.Monitor.SwapInterval <= 0 {
		return fmt.Errorf("SWAP_MONITOR_INTERVAL must be > 0")
	}
	if c.Monitor.AlertInterval <= 0 {
		return fmt.Errorf("ALERT_INTERVAL must be > 0")
	}
	if c.Monitor.Retention <= 0 {
		return fmt.Errorf("RATE_RETENTION must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// parsePairs parses a comma-separated list like
// "BTC-bitcoin/ETH-ethereum,ETH-ethereum/USDT-tron".
func parsePairs(raw string) ([]domain.Pair, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	pairs := make([]domain.Pair, 0, len(parts))
	for _, part := range parts {
		pair, err := domain.ParsePair(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("TRACKED_PAIRS entry %q: %w", part, err)
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
