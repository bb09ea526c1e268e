package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Data sources understood by DATA_SOURCE.
const (
	SourceHTTP   = "http"
	SourceMemory = "memory"
	SourceSQLite = "sqlite"
	SourceSheets = "sheets"
)

// Cache backends understood by CACHE_BACKEND.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Config struct {
	// HTTP Server
	Port               string
	CORSAllowedOrigins []string
	TrustedProxies     []string
	RefreshPerMinute   int

	// Logging
	LogLevel  string
	LogFormat string

	// Data source selection
	DataSource string

	// HTTP source
	SourceBaseURL  string
	SourceProxyURL string
	FetchTimeout   time.Duration

	// Memory source
	DataDir string

	// SQLite source
	SQLiteDBPath string

	// Google Sheets source
	GoogleSpreadsheetID      string
	GoogleCustomersSheet     string
	GoogleTransactionsSheet  string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Dataset cache
	CacheBackend  string
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// AMQP refresh notifications
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES", nil),
		RefreshPerMinute:   getEnvInt("REFRESH_PER_MINUTE", 6),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DataSource: getEnv("DATA_SOURCE", SourceHTTP),

		SourceBaseURL:  getEnv("SOURCE_BASE_URL", "http://localhost:3000"),
		SourceProxyURL: getEnv("SOURCE_PROXY_URL", ""),
		FetchTimeout:   getEnvDuration("FETCH_TIMEOUT", 0),

		DataDir: getEnv("DATA_DIR", "./data"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/txview.db"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleCustomersSheet:     getEnv("GOOGLE_CUSTOMERS_SHEET", "Customers"),
		GoogleTransactionsSheet:  getEnv("GOOGLE_TRANSACTIONS_SHEET", "Transactions"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),

		CacheBackend:  getEnv("CACHE_BACKEND", CacheNone),
		CacheTTL:      getEnvDuration("CACHE_TTL", 5*time.Minute),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "txview"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "dataset_refresh"),
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

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	if !oneOf(c.DataSource, SourceHTTP, SourceMemory, SourceSQLite, SourceSheets) {
		errors = append(errors, fmt.Sprintf("invalid data source '%s': must be one of %v", c.DataSource,
			[]string{SourceHTTP, SourceMemory, SourceSQLite, SourceSheets}))
	}

	switch c.DataSource {
	case SourceHTTP:
		if err := validateHTTPURL(c.SourceBaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid source base URL '%s': %v", c.SourceBaseURL, err))
		}
		if c.SourceProxyURL != "" {
			if err := validateHTTPURL(c.SourceProxyURL); err != nil {
				errors = append(errors, fmt.Sprintf("invalid source proxy URL '%s': %v", c.SourceProxyURL, err))
			}
		}
		if c.FetchTimeout < 0 {
			errors = append(errors, fmt.Sprintf("invalid fetch timeout %v: must not be negative", c.FetchTimeout))
		}
	case SourceMemory:
		if c.DataDir == "" {
			errors = append(errors, "data directory cannot be empty when using memory source")
		}
	case SourceSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite source")
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
	case SourceSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets source")
		}
		if c.GoogleCustomersSheet == "" || c.GoogleTransactionsSheet == "" {
			errors = append(errors, "Google customers and transactions sheet names cannot be empty")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets source")
		}
	}

	if !oneOf(c.CacheBackend, CacheNone, CacheMemory, CacheRedis) {
		errors = append(errors, fmt.Sprintf("invalid cache backend '%s': must be one of %v", c.CacheBackend,
			[]string{CacheNone, CacheMemory, CacheRedis}))
	}
	if c.CacheBackend != CacheNone && c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}
	if c.CacheBackend == CacheRedis && c.RedisAddr == "" {
		errors = append(errors, "Redis address cannot be empty when using redis cache")
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

	if c.RefreshPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid refresh rate %d: must be at least 1 per minute", c.RefreshPerMinute))
	}

	if !oneOf(strings.ToLower(c.LogFormat), "text", "json", "tint") {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of [text json tint]", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
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

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
