package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Database
	SQLiteDBPath string

	// AMQP; an empty URL disables the maintenance queue
	AMQPURL          string
	AMQPExchange     string
	AMQPQueue        string
	AMQPDialAttempts int

	// Worker
	OverdueSweepInterval time.Duration
	CacheCleanInterval   time.Duration

	// Card lookups
	CardCacheSize int
	CardCacheTTL  time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finance.db"),

		AMQPURL:          getEnv("AMQP_URL", ""),
		AMQPExchange:     getEnv("AMQP_EXCHANGE", "finance"),
		AMQPQueue:        getEnv("AMQP_QUEUE", "ledger_maintenance"),
		AMQPDialAttempts: getEnvInt("AMQP_DIAL_ATTEMPTS", 5),

		OverdueSweepInterval: getEnvDuration("OVERDUE_SWEEP_INTERVAL", time.Hour),
		CacheCleanInterval:   getEnvDuration("CACHE_CLEAN_INTERVAL", 5*time.Minute),

		CardCacheSize: getEnvInt("CARD_CACHE_SIZE", 256),
		CardCacheTTL:  getEnvDuration("CARD_CACHE_TTL", 10*time.Minute),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPDialAttempts < 1 {
			errors = append(errors, fmt.Sprintf("invalid AMQP dial attempts %d: must be at least 1", c.AMQPDialAttempts))
		}
	}

	if c.OverdueSweepInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid overdue sweep interval %v: must be at least 1 minute", c.OverdueSweepInterval))
	} else if c.OverdueSweepInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid overdue sweep interval %v: must be at most 24 hours", c.OverdueSweepInterval))
	}
	if c.CacheCleanInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache clean interval %v: must be at least 1 second", c.CacheCleanInterval))
	}

	if c.CardCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid card cache size %d: must be at least 1", c.CardCacheSize))
	} else if c.CardCacheSize > 100000 {
		errors = append(errors, fmt.Sprintf("invalid card cache size %d: must be at most 100000", c.CardCacheSize))
	}
	if c.CardCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid card cache TTL %v: must not be negative", c.CardCacheTTL))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
