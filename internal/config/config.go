// Package config loads jobtrail settings from environment variables, after
// reading an optional .env file, with defaults and validation.
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the CLI.
type Config struct {
	DBPath      string        // JOBTRAIL_DB
	LogLevel    string        // JOBTRAIL_LOG_LEVEL: debug|info|warn|error|fatal|panic
	LogPretty   bool          // JOBTRAIL_LOG_PRETTY
	BusyTimeout time.Duration // JOBTRAIL_BUSY_TIMEOUT, e.g. 5s
}

// DefaultDBPath is used when JOBTRAIL_DB is unset.
const DefaultDBPath = "jobtrail.db"

// Load reads the given .env files (".env" when none are named), then the
// environment, applies defaults and validates the result. Missing .env files
// are ignored; variables already set in the environment win.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}

	cfg := Config{
		DBPath:      getenv("JOBTRAIL_DB", DefaultDBPath),
		LogLevel:    strings.ToLower(getenv("JOBTRAIL_LOG_LEVEL", "warn")),
		LogPretty:   getbool("JOBTRAIL_LOG_PRETTY", false),
		BusyTimeout: getdur("JOBTRAIL_BUSY_TIMEOUT", 5*time.Second),
	}

	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("JOBTRAIL_LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("JOBTRAIL_DB must not be empty")
	}
	if cfg.BusyTimeout <= 0 {
		return cfg, errors.New("JOBTRAIL_BUSY_TIMEOUT must be a positive duration")
	}

	return cfg, nil
}

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
