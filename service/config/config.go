package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Port           int
	APIKey         string
	VerboseLogging bool
	RateLimit      int

	StoragePath string
	UploadsPath string
	MaxIconSize int64

	ServerURL string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnvInt("PORT", 5005),
		APIKey:         os.Getenv("API_KEY"),
		VerboseLogging: getEnvBool("VERBOSE_LOGGING", false),
		RateLimit:      getEnvInt("RATE_LIMIT", 100),

		StoragePath: getEnvString("STORAGE_PATH", "./data/db.sqlite"),
		UploadsPath: getEnvString("UPLOADS_PATH", "./data/uploads"),
		MaxIconSize: getEnvInt64("MAX_ICON_SIZE", 5<<20),

		ServerURL: os.Getenv("FLAME_URL"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("API_KEY environment variable is required")
	}
	if c.MaxIconSize <= 0 {
		return fmt.Errorf("MAX_ICON_SIZE must be positive, got %d", c.MaxIconSize)
	}
	return nil
}

// BaseURL is where CLI commands send API requests.
func (c *Config) BaseURL() string {
	if c.ServerURL != "" {
		return c.ServerURL
	}
	return fmt.Sprintf("http://localhost:%d", c.Port)
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}
