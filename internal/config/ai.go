package config

import (
	"os"
	"time"
)

// ClassifierConfig holds the remote toxicity classifier settings
type ClassifierConfig struct {
	APIKey   string        `mapstructure:"api_key" json:"-"` // Never serialize
	Endpoint string        `mapstructure:"endpoint" json:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout" json:"timeout"`
}

// DefaultClassifierConfig returns the default classifier configuration
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		APIKey:   os.Getenv("TOXICITY_API_KEY"),
		Endpoint: getEnvOrDefault("TOXICITY_ENDPOINT", ""),
		Timeout:  3 * time.Second,
	}
}

// IsEnabled returns true if a classifier endpoint is configured
func (c ClassifierConfig) IsEnabled() bool {
	return c.Endpoint != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
