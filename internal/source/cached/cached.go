// Package cached puts a snapshot store in front of a dataset fetcher.
package cached

import (
	"context"
	"fmt"

	"txview/internal/cache"
	"txview/internal/core"
	applog "txview/internal/log"
	"txview/internal/metrics"
	"txview/internal/source"
)

// DatasetKey is the store key of the dataset snapshot.
const DatasetKey = "dataset"

// Fetcher serves Fetch from the store when it holds a snapshot and fills
// it from the origin otherwise. Store failures degrade to origin fetches.
type Fetcher struct {
	origin source.DatasetFetcher
	store  cache.Store[core.Dataset]
	logger *applog.Logger
}

var (
	_ source.DatasetFetcher = (*Fetcher)(nil)
	_ source.Invalidator    = (*Fetcher)(nil)
)

func New(origin source.DatasetFetcher, store cache.Store[core.Dataset], logger *applog.Logger) *Fetcher {
	return &Fetcher{
		origin: origin,
		store:  store,
		logger: logger.WithComponent(applog.ComponentCache),
	}
}

func (f *Fetcher) Fetch(ctx context.Context) (core.Dataset, error) {
	d, ok, err := f.store.Get(ctx, DatasetKey)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		f.logger.WarnContext(ctx, "Cache read failed, fetching from origin", applog.FieldError, err)
	case ok:
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return d.Clone(), nil
	default:
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	d, err = f.origin.Fetch(ctx)
	if err != nil {
		return core.Dataset{}, err
	}
	if err := f.store.Set(ctx, DatasetKey, d.Clone()); err != nil {
		f.logger.WarnContext(ctx, "Cache write failed", applog.FieldError, err)
	}
	return d, nil
}

// Invalidate drops the snapshot so the next Fetch reaches the origin.
func (f *Fetcher) Invalidate(ctx context.Context) error {
	if err := f.store.Delete(ctx, DatasetKey); err != nil {
		return fmt.Errorf("invalidate dataset snapshot: %w", err)
	}
	return nil
}
