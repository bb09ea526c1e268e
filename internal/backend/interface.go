package backend

import (
	"context"

	"txview/internal/cache"
	"txview/internal/source"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Result is an assembled dataset backend. Optional parts are nil when the
// configuration does not provide them.
type Result struct {
	Fetcher source.DatasetFetcher
	// Importer is set for sources that can store a dataset.
	Importer source.DatasetImporter
	// Invalidator is set when a snapshot cache sits in front of the source.
	Invalidator source.Invalidator
	// Cleaner is set for in-process caches that need expiry sweeps.
	Cleaner cache.Cleaner
	Cleanup CleanupFunc
}

// Close runs Cleanup if present.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration.
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// SourceType names a dataset source.
type SourceType string

const (
	HTTPSource   SourceType = "http"
	MemorySource SourceType = "memory"
	SQLiteSource SourceType = "sqlite"
	SheetsSource SourceType = "sheets"
)

func (t SourceType) String() string {
	return string(t)
}

// IsValid returns true if the source type is known.
func (t SourceType) IsValid() bool {
	switch t {
	case HTTPSource, MemorySource, SQLiteSource, SheetsSource:
		return true
	default:
		return false
	}
}

// CacheType names a snapshot cache.
type CacheType string

const (
	NoCache     CacheType = "none"
	MemoryCache CacheType = "memory"
	RedisCache  CacheType = "redis"
)
