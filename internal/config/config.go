package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SessionBackendKeyring = "keyring"
	SessionBackendFile    = "file"
	SessionBackendMemory  = "memory"
)

// Config holds all configuration for the CLI that comes from the environment
type Config struct {
	// API overrides the server chosen from biocom.yaml when set
	API APIConfig

	// Session persistence
	Session SessionConfig

	// Credentials used by non-interactive login
	Credentials CredentialsConfig

	// Logging Configuration
	Logging LoggingConfig
}

// APIConfig holds backend connection settings
type APIConfig struct {
	URL        string
	AuthPrefix string
	Timeout    time.Duration
}

// SessionConfig selects where sessions are persisted
type SessionConfig struct {
	Backend string // keyring, file, memory
	Dir     string // only used by the file backend
}

// CredentialsConfig holds credentials read from the environment (useful for CI)
type CredentialsConfig struct {
	Username string
	Password string
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	timeout := 30 * time.Second
	if raw := os.Getenv("BIOCOM_HTTP_TIMEOUT"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid BIOCOM_HTTP_TIMEOUT %q: %w", raw, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("BIOCOM_HTTP_TIMEOUT must be positive, got %s", parsed)
		}
		timeout = parsed
	}

	backend := strings.ToLower(getenv("BIOCOM_SESSION_BACKEND", SessionBackendKeyring))
	switch backend {
	case SessionBackendKeyring, SessionBackendFile, SessionBackendMemory:
	default:
		return nil, fmt.Errorf("invalid BIOCOM_SESSION_BACKEND %q, must be one of: keyring, file, memory", backend)
	}

	return &Config{
		API: APIConfig{
			URL:        strings.TrimRight(os.Getenv("BIOCOM_API_URL"), "/"),
			AuthPrefix: os.Getenv("BIOCOM_AUTH_PREFIX"),
			Timeout:    timeout,
		},
		Session: SessionConfig{
			Backend: backend,
			Dir:     os.Getenv("BIOCOM_SESSION_DIR"),
		},
		Credentials: CredentialsConfig{
			Username: os.Getenv("BIOCOM_USERNAME"),
			Password: os.Getenv("BIOCOM_PASSWORD"),
		},
		Logging: LoggingConfig{
			Level:  getenv("BIOCOM_LOG_LEVEL", "warn"),
			Format: getenv("BIOCOM_LOG_FORMAT", "console"),
		},
	}, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
