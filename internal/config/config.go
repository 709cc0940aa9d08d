// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default values for optional settings.
const (
	DefaultCatalogURL   = "https://dummyjson.com/products?limit=0"
	DefaultDatabasePath = "./data/storefront.db"
	DefaultPageSize     = 8
	DefaultSessionTTL   = 30 * 24 * time.Hour
	DefaultMetricsAddr  = ":9090"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	CatalogURL       string
	DatabasePath     string
	LogLevel         string
	AllowedUsers     []int64
	PageSize         int
	SessionTTL       time.Duration
	MetricsAddr      string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	var allowedUsers []int64
	if raw := os.Getenv("ALLOWED_USERS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
			}
			allowedUsers = append(allowedUsers, uid)
		}
	}

	pageSize := DefaultPageSize
	if raw := os.Getenv("PAGE_SIZE"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 20 {
			return nil, fmt.Errorf("PAGE_SIZE must be between 1 and 20, got %q", raw)
		}
		pageSize = n
	}

	ttl := DefaultSessionTTL
	if raw := os.Getenv("SESSION_TTL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid SESSION_TTL %q: must be a positive duration", raw)
		}
		ttl = d
	}

	metricsAddr, ok := os.LookupEnv("METRICS_ADDR")
	if !ok {
		metricsAddr = DefaultMetricsAddr
	}

	return &Config{
		TelegramBotToken: token,
		CatalogURL:       envOrDefault("CATALOG_URL", DefaultCatalogURL),
		DatabasePath:     envOrDefault("DATABASE_PATH", DefaultDatabasePath),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		AllowedUsers:     allowedUsers,
		PageSize:         pageSize,
		SessionTTL:       ttl,
		MetricsAddr:      metricsAddr,
	}, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}
