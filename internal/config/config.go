// Package config loads service configuration from the environment.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config carries everything the binaries need.  DatabaseURL may be empty;
// the server then falls back to the in-memory document store.
type Config struct {
	OpenAIAPIKey           string
	Model                  string
	SessionDurationMinutes int
	DatabaseURL            string
	NotifyChannel          string
	Port                   string
	LogLevel               string
}

// Load reads configuration from environment variables, applying defaults
// that match the framework's stock settings (gpt-4o-mini, 50 minutes).
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("model", "gpt-4o-mini")
	v.SetDefault("session_duration_minutes", 50)
	v.SetDefault("notify_channel", "session_updates")
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")

	bindings := map[string]string{
		"openai_api_key":           "OPENAI_API_KEY",
		"model":                    "OPENAI_MODEL",
		"session_duration_minutes": "SESSION_DURATION_MINUTES",
		"database_url":             "DATABASE_URL",
		"notify_channel":           "POSTGRES_NOTIFY_CHANNEL",
		"port":                     "PORT",
		"log_level":                "LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	cfg := &Config{
		OpenAIAPIKey:           v.GetString("openai_api_key"),
		Model:                  v.GetString("model"),
		SessionDurationMinutes: v.GetInt("session_duration_minutes"),
		DatabaseURL:            v.GetString("database_url"),
		NotifyChannel:          v.GetString("notify_channel"),
		Port:                   v.GetString("port"),
		LogLevel:               v.GetString("log_level"),
	}
	if cfg.SessionDurationMinutes <= 0 {
		return nil, fmt.Errorf("SESSION_DURATION_MINUTES must be positive, got %d", cfg.SessionDurationMinutes)
	}
	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string { return ":" + c.Port }
