package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"txview/internal/cache"
	"txview/internal/core"
	applog "txview/internal/log"
	"txview/internal/source/cached"
	"txview/internal/source/google"
	"txview/internal/source/httpsource"
	"txview/internal/source/memory"
	"txview/internal/source/sqlite"
)

const (
	redisKeyPrefix = "txview:"
	lruSize        = 4
)

// DefaultFactory implements Factory.
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory.
func NewFactory(logger *applog.Logger) Factory {
	return &DefaultFactory{logger: logger}
}

// Create builds the configured source and wraps it with the configured
// snapshot cache.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	res, err := f.createSource(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := f.wrapCache(ctx, config, res); err != nil {
		_ = res.Close()
		return nil, err
	}
	return res, nil
}

func (f *DefaultFactory) createSource(ctx context.Context, config Config) (*Result, error) {
	switch config.Source {
	case HTTPSource:
		fetcher := httpsource.New(httpsource.Config{
			BaseURL:  config.BaseURL,
			ProxyURL: config.ProxyURL,
			Timeout:  config.FetchTimeout,
		}, f.logger)
		customers, transactions := fetcher.URLs()
		f.logger.Info("Initialized HTTP source",
			"customers_url", customers,
			"transactions_url", transactions,
			"timeout", config.FetchTimeout)
		return &Result{Fetcher: fetcher}, nil

	case MemorySource:
		dir := config.DataDirectory
		if dir == "" {
			dir = "data"
		}
		store, err := memory.NewFromDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to load memory source: %w", err)
		}
		f.logger.Info("Initialized memory source", "data_directory", dir)
		return &Result{Fetcher: store, Importer: store}, nil

	case SQLiteSource:
		store, err := sqlite.Open(config.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite source: %w", err)
		}
		f.logger.Info("Initialized SQLite source", "db_path", config.SQLiteDBPath)
		return &Result{Fetcher: store, Importer: store, Cleanup: store.Close}, nil

	case SheetsSource:
		cli, err := google.NewClient(ctx, google.Config{
			SpreadsheetID:     config.GoogleSpreadsheetID,
			CustomersSheet:    config.GoogleCustomersSheet,
			TransactionsSheet: config.GoogleTransactionsSheet,
			CredentialsJSON:   config.GoogleServiceAccountJSON,
			CredentialsFile:   config.GoogleServiceAccountFile,
		}, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		return &Result{Fetcher: cli}, nil

	default:
		return nil, fmt.Errorf("unsupported source type: %s", config.Source)
	}
}

func (f *DefaultFactory) wrapCache(ctx context.Context, config Config, res *Result) error {
	var store cache.Store[core.Dataset]

	switch config.Cache {
	case "", NoCache:
		return nil

	case MemoryCache:
		lru := cache.NewLRUCache[core.Dataset](lruSize, config.CacheTTL)
		store = cache.NewLRUStore(lru)
		res.Cleaner = lru
		f.logger.Info("Initialized in-memory dataset cache", "ttl", config.CacheTTL)

	case RedisCache:
		client, err := cache.NewRedisClient(ctx, config.RedisAddr, config.RedisPassword, config.RedisDB)
		if err != nil {
			return err
		}
		store = cache.NewRedisStore[core.Dataset](client, redisKeyPrefix, config.CacheTTL)
		res.Cleanup = chainCleanup(res.Cleanup, closeRedis(client))
		f.logger.Info("Initialized Redis dataset cache", "addr", config.RedisAddr, "ttl", config.CacheTTL)

	default:
		return fmt.Errorf("unsupported cache type: %s", config.Cache)
	}

	fetcher := cached.New(res.Fetcher, store, f.logger)
	res.Fetcher = fetcher
	res.Invalidator = fetcher
	return nil
}

func closeRedis(client *redis.Client) CleanupFunc {
	return func() error {
		return client.Close()
	}
}

func chainCleanup(fns ...CleanupFunc) CleanupFunc {
	return func() error {
		var errs []error
		for _, fn := range fns {
			if fn == nil {
				continue
			}
			if err := fn(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

// SweepInterval is how often in-process caches should be swept for ttl.
func SweepInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > 5*time.Minute {
		return 5 * time.Minute
	}
	return ttl
}
