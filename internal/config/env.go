package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadEnv loads environment variables from the first .env file found in the
// current directory or its parents. Variables already set are left alone.
func LoadEnv() error {
	return LoadEnvFrom(".env", "../.env", "../../.env")
}

// LoadEnvFrom loads the first readable file among envPaths.
func LoadEnvFrom(envPaths ...string) error {
	for _, envPath := range envPaths {
		if data, err := os.ReadFile(envPath); err == nil {
			lines := strings.Split(string(data), "\n")
			for _, line := range lines {
				line = strings.TrimSpace(line)
				if line == "" || strings.HasPrefix(line, "#") {
					continue
				}

				key, value, ok := strings.Cut(strings.TrimPrefix(line, "export "), "=")
				if !ok {
					continue
				}
				key = strings.TrimSpace(key)
				value = strings.Trim(strings.TrimSpace(value), `"'`)

				// Only set if not already set
				if _, set := os.LookupEnv(key); !set {
					if err := os.Setenv(key, value); err != nil {
						return fmt.Errorf("failed to set %s from %s: %w", key, envPath, err)
					}
				}
			}
			break // Successfully loaded, don't try other paths
		}
	}
	return nil
}

// GetEnv gets environment variable with default
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt gets integer environment variable with default
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvFloat gets float environment variable with default
func GetEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
