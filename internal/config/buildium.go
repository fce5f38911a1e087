package config

import (
	"os"
	"strconv"
	"time"
)

type BuildiumConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	MemoLimit    int
}

func LoadBuildiumConfig() *BuildiumConfig {
	return &BuildiumConfig{
		BaseURL:      getEnv("BUILDIUM_BASE_URL", "https://api.buildium.com"),
		ClientID:     getEnv("BUILDIUM_CLIENT_ID", ""),
		ClientSecret: getEnv("BUILDIUM_CLIENT_SECRET", ""),
		Timeout:      getEnvAsDuration("BUILDIUM_TIMEOUT", 30*time.Second),
		MemoLimit:    getEnvAsInt("BUILDIUM_MEMO_LIMIT", 255),
	}
}

// Configured reports whether API credentials are present. Without them the
// engine still persists local drafts but refuses to sync.
func (c *BuildiumConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
