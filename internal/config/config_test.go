package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var envKeys = []string{
	"TELEGRAM_BOT_TOKEN", "CATALOG_URL", "DATABASE_PATH", "LOG_LEVEL",
	"ALLOWED_USERS", "PAGE_SIZE", "SESSION_TTL", "METRICS_ADDR",
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    *Config
		wantErr bool
	}{
		{
			name:    "missing token",
			env:     map[string]string{},
			wantErr: true,
		},
		{
			name: "token only, defaults applied",
			env:  map[string]string{"TELEGRAM_BOT_TOKEN": "test-token"},
			want: &Config{
				TelegramBotToken: "test-token",
				CatalogURL:       DefaultCatalogURL,
				DatabasePath:     "./data/storefront.db",
				LogLevel:         "info",
				AllowedUsers:     nil,
				PageSize:         8,
				SessionTTL:       30 * 24 * time.Hour,
				MetricsAddr:      ":9090",
			},
		},
		{
			name: "all values set",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tok",
				"CATALOG_URL":        "https://shop.example.com/feed.xml",
				"DATABASE_PATH":      "/tmp/store.db",
				"LOG_LEVEL":          "debug",
				"ALLOWED_USERS":      "111,222,333",
				"PAGE_SIZE":          "12",
				"SESSION_TTL":        "48h",
				"METRICS_ADDR":       "127.0.0.1:9100",
			},
			want: &Config{
				TelegramBotToken: "tok",
				CatalogURL:       "https://shop.example.com/feed.xml",
				DatabasePath:     "/tmp/store.db",
				LogLevel:         "debug",
				AllowedUsers:     []int64{111, 222, 333},
				PageSize:         12,
				SessionTTL:       48 * time.Hour,
				MetricsAddr:      "127.0.0.1:9100",
			},
		},
		{
			name: "empty metrics address disables the ops server",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tok",
				"METRICS_ADDR":       "",
			},
			want: &Config{
				TelegramBotToken: "tok",
				CatalogURL:       DefaultCatalogURL,
				DatabasePath:     "./data/storefront.db",
				LogLevel:         "info",
				PageSize:         8,
				SessionTTL:       DefaultSessionTTL,
				MetricsAddr:      "",
			},
		},
		{
			name: "allowed users with spaces",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tok",
				"ALLOWED_USERS":      " 10 , 20 , ",
			},
			want: &Config{
				TelegramBotToken: "tok",
				CatalogURL:       DefaultCatalogURL,
				DatabasePath:     "./data/storefront.db",
				LogLevel:         "info",
				AllowedUsers:     []int64{10, 20},
				PageSize:         8,
				SessionTTL:       DefaultSessionTTL,
				MetricsAddr:      ":9090",
			},
		},
		{
			name: "invalid user id",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tok",
				"ALLOWED_USERS":      "123,abc",
			},
			wantErr: true,
		},
		{
			name: "page size out of range",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tok",
				"PAGE_SIZE":          "50",
			},
			wantErr: true,
		},
		{
			name: "invalid session ttl",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tok",
				"SESSION_TTL":        "a month",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range envKeys {
				t.Setenv(key, "")
				_ = os.Unsetenv(key)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIsUserAllowed(t *testing.T) {
	tests := []struct {
		name         string
		allowedUsers []int64
		userID       int64
		want         bool
	}{
		{
			name:         "empty list allows everyone",
			allowedUsers: nil,
			userID:       42,
			want:         true,
		},
		{
			name:         "user in list",
			allowedUsers: []int64{10, 20, 30},
			userID:       20,
			want:         true,
		},
		{
			name:         "user not in list",
			allowedUsers: []int64{10, 20, 30},
			userID:       99,
			want:         false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{AllowedUsers: tt.allowedUsers}
			got := cfg.IsUserAllowed(tt.userID)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("IsUserAllowed() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
