package backend

import (
	"fmt"
	"time"

	"txview/internal/config"
)

// Config holds everything needed to assemble a backend.
type Config struct {
	Source SourceType

	// HTTP
	BaseURL      string
	ProxyURL     string
	FetchTimeout time.Duration

	// Memory
	DataDirectory string

	// SQLite
	SQLiteDBPath string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleCustomersSheet     string
	GoogleTransactionsSheet  string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Snapshot cache
	Cache         CacheType
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	c := Config{
		Source:                   SourceType(appConfig.DataSource),
		BaseURL:                  appConfig.SourceBaseURL,
		ProxyURL:                 appConfig.SourceProxyURL,
		FetchTimeout:             appConfig.FetchTimeout,
		DataDirectory:            appConfig.DataDir,
		SQLiteDBPath:             appConfig.SQLiteDBPath,
		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleCustomersSheet:     appConfig.GoogleCustomersSheet,
		GoogleTransactionsSheet:  appConfig.GoogleTransactionsSheet,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		Cache:                    CacheType(appConfig.CacheBackend),
		CacheTTL:                 appConfig.CacheTTL,
		RedisAddr:                appConfig.RedisAddr,
		RedisPassword:            appConfig.RedisPassword,
		RedisDB:                  appConfig.RedisDB,
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the fields the selected source and cache need.
func (c Config) Validate() error {
	if !c.Source.IsValid() {
		return fmt.Errorf("invalid source type: %s", c.Source)
	}

	switch c.Source {
	case HTTPSource:
		if c.BaseURL == "" {
			return fmt.Errorf("base URL is required for http source")
		}
	case SQLiteSource:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite source")
		}
	case SheetsSource:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets source")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			return fmt.Errorf("either GoogleServiceAccountJSON or GoogleServiceAccountFile must be provided for sheets source")
		}
	case MemorySource:
		// DataDirectory defaults to "data".
	}

	switch c.Cache {
	case "", NoCache, MemoryCache:
	case RedisCache:
		if c.RedisAddr == "" {
			return fmt.Errorf("Redis address is required for redis cache")
		}
	default:
		return fmt.Errorf("invalid cache type: %s", c.Cache)
	}
	return nil
}
