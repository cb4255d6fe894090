package config

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	// Database
	DatabasePath string

	// Admin login
	AdminUser         string
	AdminPasswordHash string

	// Session
	SessionSecret string

	// Survey
	SeedGuests []string

	// App
	BaseURL string
}

func Load() (*Config, error) {
	cfg := &Config{
		DatabasePath:      getEnv("DB_PATH", "potluck.db"),
		AdminUser:         getEnv("ADMIN_USER", "admin"),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		SessionSecret:     getEnv("SESSION_SECRET", "change-me-in-production"),
		BaseURL:           getEnv("BASE_URL", "http://localhost:8080"),
	}

	// Parse seed guest names
	seedGuestsStr := getEnv("SEED_GUESTS", "Andreas mit Familie,Maria,Lena,Thomas,Sabine")
	if seedGuestsStr != "" {
		for _, name := range strings.Split(seedGuestsStr, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				cfg.SeedGuests = append(cfg.SeedGuests, name)
			}
		}
	}

	// Allow a plain-text password for local development; hash it on load so
	// the rest of the app only ever sees the hash.
	if cfg.AdminPasswordHash == "" {
		plain := getEnv("ADMIN_PASSWORD", "")
		if plain == "" {
			return nil, fmt.Errorf("either ADMIN_PASSWORD_HASH or ADMIN_PASSWORD must be set")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash ADMIN_PASSWORD: %w", err)
		}
		cfg.AdminPasswordHash = string(hash)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
