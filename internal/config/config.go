package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Persistence
	DataBackend  string // "kv" or "sqlite"
	DataDir      string // kv backend storage directory
	SQLiteDBPath string

	// Gemini gateway
	GeminiAPIKey string
	GeminiModel  string

	// Artificial latency emulating a network round trip
	LoginDelay  time.Duration
	MutateDelay time.Duration
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:  getEnv("DATA_BACKEND", "kv"),
		DataDir:      getEnv("DATA_DIR", "./data"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/spendsmart.db"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		LoginDelay:  getEnvDuration("LOGIN_DELAY", 800*time.Millisecond),
		MutateDelay: getEnvDuration("MUTATE_DELAY", 300*time.Millisecond),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case "kv":
		if c.DataDir == "" {
			errs = append(errs, "data directory cannot be empty when using kv backend")
		} else if err := ensureDir(c.DataDir); err != nil {
			errs = append(errs, fmt.Sprintf("cannot create data directory '%s': %v", c.DataDir, err))
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		} else if err := ensureDir(filepath.Dir(c.SQLiteDBPath)); err != nil {
			errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", filepath.Dir(c.SQLiteDBPath), err))
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of [kv sqlite]", c.DataBackend))
	}

	// The gateway is optional; parsing and assistant features degrade to
	// "unavailable" without a key. The model name is not.
	if c.GeminiModel == "" {
		errs = append(errs, "Gemini model name cannot be empty")
	}

	if c.LoginDelay < 0 || c.LoginDelay > 10*time.Second {
		errs = append(errs, fmt.Sprintf("invalid login delay %v: must be between 0 and 10s", c.LoginDelay))
	}
	if c.MutateDelay < 0 || c.MutateDelay > 10*time.Second {
		errs = append(errs, fmt.Sprintf("invalid mutate delay %v: must be between 0 and 10s", c.MutateDelay))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
}

func ensureDir(dir string) error {
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
