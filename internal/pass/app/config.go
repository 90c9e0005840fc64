package app

import (
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	AuthAPIURL string // Required: base URL of the Auth API
	DataAPIURL string // Required: base URL of the Property/Data API

	StateDir       string        // Local state directory (default: ~/.gatepass)
	Locale         string        // Accept-Language value and message language (default: en)
	Platform       string        // Platform reported at device registration (default: web)
	PassValidity   time.Duration // Validity window for issued passes (default: 24h)
	ConfigInterval time.Duration // Minimum spacing between gate-config fetches (default: 1h)
	DownloadDir    string        // Where exported cards are written (default: <StateDir>/downloads)

	Env       string // Environment (dev, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: text)
}

func LoadConfig() Config {
	stateDir := os.Getenv("GATEPASS_STATE_DIR")
	if stateDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			stateDir = filepath.Join(home, ".gatepass")
		} else {
			stateDir = ".gatepass"
		}
	}

	cfg := Config{
		AuthAPIURL:     os.Getenv("GATEPASS_AUTH_API_URL"),
		DataAPIURL:     os.Getenv("GATEPASS_DATA_API_URL"),
		StateDir:       stateDir,
		Locale:         getEnvOrDefault("GATEPASS_LOCALE", "en"),
		Platform:       getEnvOrDefault("GATEPASS_PLATFORM", "web"),
		PassValidity:   getEnvDurationOrDefault("GATEPASS_PASS_VALIDITY", 24*time.Hour),
		ConfigInterval: getEnvDurationOrDefault("GATEPASS_CONFIG_INTERVAL", time.Hour),
		DownloadDir:    getEnvOrDefault("GATEPASS_DOWNLOAD_DIR", filepath.Join(stateDir, "downloads")),
		Env:            getEnvOrDefault("ENV", "dev"),
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:      getEnvOrDefault("LOG_FORMAT", "text"),
	}
	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return defaultValue
}
