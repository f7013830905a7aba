// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration loaded from environment
// variables (optionally seeded from a .env file in the working directory).
type Config struct {
	// ClientID is the Entra app registration used for delegated sign-in.
	ClientID string
	// ClientSecret is optional; public client registrations omit it.
	ClientSecret string
	// TenantID defaults to "organizations" (any work account).
	TenantID string

	ListenAddr string
	DBPath     string

	// SecretKey is the 32-byte AES-256 key protecting stored refresh tokens,
	// nil when INTUNE_EXPORT_SECRET_KEY is unset (token persistence disabled).
	SecretKey []byte

	// ExportJobTimeout bounds how long an export job is polled before the
	// run is abandoned.
	ExportJobTimeout time.Duration
}

// Load reads configuration from environment variables and returns a validated
// Config. INTUNE_EXPORT_CLIENT_ID is required. Optional variables with
// defaults: INTUNE_EXPORT_TENANT_ID (organizations), INTUNE_EXPORT_LISTEN_ADDR
// (127.0.0.1:8080), INTUNE_EXPORT_DB_PATH (intune-export.db),
// INTUNE_EXPORT_JOB_TIMEOUT (30m).
func Load() (*Config, error) {
	// A missing .env is fine; the environment wins over the file.
	_ = godotenv.Load()

	clientID := os.Getenv("INTUNE_EXPORT_CLIENT_ID")
	if clientID == "" {
		return nil, fmt.Errorf("INTUNE_EXPORT_CLIENT_ID is required")
	}

	tenantID := "organizations"
	if v, ok := os.LookupEnv("INTUNE_EXPORT_TENANT_ID"); ok && v != "" {
		tenantID = v
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("INTUNE_EXPORT_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "intune-export.db"
	if v, ok := os.LookupEnv("INTUNE_EXPORT_DB_PATH"); ok {
		dbPath = v
	}

	jobTimeout := 30 * time.Minute
	if v, ok := os.LookupEnv("INTUNE_EXPORT_JOB_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("INTUNE_EXPORT_JOB_TIMEOUT has invalid duration %q: %w", v, err)
		}
		jobTimeout = parsed
	}

	var secretKey []byte
	if v, ok := os.LookupEnv("INTUNE_EXPORT_SECRET_KEY"); ok && v != "" {
		key, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("INTUNE_EXPORT_SECRET_KEY is not valid hex: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("INTUNE_EXPORT_SECRET_KEY must decode to 32 bytes, got %d", len(key))
		}
		secretKey = key
	}

	return &Config{
		ClientID:         clientID,
		ClientSecret:     os.Getenv("INTUNE_EXPORT_CLIENT_SECRET"),
		TenantID:         tenantID,
		ListenAddr:       listenAddr,
		DBPath:           dbPath,
		SecretKey:        secretKey,
		ExportJobTimeout: jobTimeout,
	}, nil
}

// RedirectURL derives the OAuth2 callback URL served by the GUI itself.
func (c *Config) RedirectURL() string {
	return fmt.Sprintf("http://%s/auth/callback", c.ListenAddr)
}
