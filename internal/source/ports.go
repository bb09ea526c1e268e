package source

import (
	"context"

	"txview/internal/core"
)

// Ports for dataset adapters.
type (
	// DatasetFetcher retrieves both collections as one bundle. A failure of
	// either collection fails the whole fetch; no partial dataset is
	// returned.
	DatasetFetcher interface {
		Fetch(ctx context.Context) (core.Dataset, error)
	}

	// DatasetImporter replaces the stored dataset.
	DatasetImporter interface {
		Import(ctx context.Context, d core.Dataset) error
	}

	// Invalidator drops any snapshot held in front of a fetcher so the next
	// Fetch goes to the origin.
	Invalidator interface {
		Invalidate(ctx context.Context) error
	}
)

// FetcherFunc adapts a plain function to DatasetFetcher.
type FetcherFunc func(ctx context.Context) (core.Dataset, error)

func (f FetcherFunc) Fetch(ctx context.Context) (core.Dataset, error) {
	return f(ctx)
}
