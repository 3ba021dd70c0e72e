package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the authzd service configuration.
type Config struct {
	Server      ServerConfig
	Engine      EngineConfig
	LogLevel    string
	Environment string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// EngineConfig holds policy engine bootstrap settings.
type EngineConfig struct {
	Mode     string // rule combination mode: "all" or "any"
	Strict   bool   // deny instead of allow when no rules are registered
	Timezone string // default timezone for time-window rules
}

// Addr returns the host:port the server binds to.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads configuration from the environment, consulting a .env file
// when present. An unknown engine mode fails here: misconfiguration must
// surface at bootstrap, not at decision time.
func Load() (*Config, error) {
	// Best effort: absence of a .env file is not an error
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Engine: EngineConfig{
			Mode:     strings.ToLower(getEnv("AUTHZ_MODE", "all")),
			Strict:   getEnvBool("AUTHZ_STRICT", false),
			Timezone: getEnv("AUTHZ_TIMEZONE", "UTC"),
		},
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Environment: getEnv("ENVIRONMENT", "development"),
	}

	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}
	cfg.Server.Port = port

	if cfg.Engine.Mode != "all" && cfg.Engine.Mode != "any" {
		return nil, fmt.Errorf("invalid AUTHZ_MODE %q: must be \"all\" or \"any\"", cfg.Engine.Mode)
	}
	if _, err := time.LoadLocation(cfg.Engine.Timezone); err != nil {
		return nil, fmt.Errorf("invalid AUTHZ_TIMEZONE %q: %w", cfg.Engine.Timezone, err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}
