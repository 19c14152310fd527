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
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Exchange rates
	RatesURL             string
	RatesRefreshInterval time.Duration

	// Billing worker
	BillingInterval time.Duration

	// Identity used when the X-User-ID header is absent (single-user mode)
	DefaultUserID string
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/wealth.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "wealth"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "export_transactions"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Transactions"),

		RatesURL:             getEnv("RATES_URL", ""),
		RatesRefreshInterval: getEnvDuration("RATES_REFRESH_INTERVAL", time.Hour),

		BillingInterval: getEnvDuration("BILLING_INTERVAL", time.Hour),

		DefaultUserID: getEnv("DEFAULT_USER_ID", "local"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate SQLite path and ensure its directory exists
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

	// Validate AMQP URL if provided
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
	}

	// Validate rates URL if provided
	if c.RatesURL != "" {
		if parsedURL, err := url.Parse(c.RatesURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid rates URL '%s': %v", c.RatesURL, err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid rates URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
	}

	if c.RatesRefreshInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid rates refresh interval %v: must be at least 1 minute", c.RatesRefreshInterval))
	} else if c.RatesRefreshInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid rates refresh interval %v: must be at most 24 hours", c.RatesRefreshInterval))
	}

	if c.BillingInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid billing interval %v: must be at least 1 minute", c.BillingInterval))
	} else if c.BillingInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid billing interval %v: must be at most 24 hours", c.BillingInterval))
	}

	if strings.TrimSpace(c.DefaultUserID) == "" {
		errors = append(errors, "default user id cannot be empty")
	}

	// Return combined errors
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
