package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/fredcamaral/slidekiosk/internal/domain/entities"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "SLIDEKIOSK_"

// GetDefaultConfig returns the built-in configuration
func GetDefaultConfig() *entities.Config {
	return &entities.Config{
		Server: entities.ServerConfig{
			Enabled:           true,
			Host:              "0.0.0.0",
			Port:              8080,
			ReadTimeout:       30,
			WriteTimeout:      30,
			ShutdownTimeout:   5,
			CORSOrigins:       []string{"*"},
			RateLimit:         50,
			ImageCacheSeconds: 3600,
			PreviewLength:     100,
		},
		Storage: entities.StorageConfig{
			DataDir:       "data",
			BackupEnabled: true,
			MaxBackups:    10,
			AutoCleanup:   true,
			SeedDefaults:  true,
		},
		Watcher: entities.WatcherConfig{
			Enabled:    true,
			IntervalMs: 500,
			DebounceMs: 300,
		},
		Display: entities.DisplayConfig{
			AutoAdvanceMs: 5000,
			Loop:          true,
		},
		Logging: entities.LoggingConfig{
			Level: "info",
		},
	}
}

func env(name string) string {
	return os.Getenv(EnvPrefix + name)
}

// envInt returns the variable as int; ok is false when unset or malformed
func envInt(name string) (int, bool) {
	if value := env(name); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue, true
		}
	}
	return 0, false
}

// envBool returns the variable as bool; ok is false when unset or malformed
func envBool(name string) (bool, bool) {
	if value := env(name); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue, true
		}
	}
	return false, false
}

// envSlice splits a comma separated variable
func envSlice(name string) []string {
	value := env(name)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
