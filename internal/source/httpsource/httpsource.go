// Package httpsource fetches the dataset from the customers and
// transactions JSON endpoints.
package httpsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"txview/internal/core"
	applog "txview/internal/log"
	"txview/internal/metrics"
)

const sourceName = "http"

// ErrStatus is returned when an endpoint answers with a non-2xx status.
var ErrStatus = errors.New("unexpected response status")

// Config holds the endpoint settings.
type Config struct {
	// BaseURL is the origin serving /customers and /transactions.
	BaseURL string
	// ProxyURL, when set, is prepended verbatim to each target URL, the way
	// CORS relays expect.
	ProxyURL string
	// Timeout bounds one Fetch. Zero means no deadline.
	Timeout time.Duration
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// Fetcher implements source.DatasetFetcher over HTTP.
type Fetcher struct {
	customersURL    string
	transactionsURL string
	timeout         time.Duration
	client          *http.Client
	logger          *applog.Logger
}

// New creates a fetcher for cfg.
func New(cfg Config, logger *applog.Logger) *Fetcher {
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	return &Fetcher{
		customersURL:    cfg.ProxyURL + base + "/customers",
		transactionsURL: cfg.ProxyURL + base + "/transactions",
		timeout:         cfg.Timeout,
		client:          client,
		logger:          logger.WithComponent(applog.ComponentFetcher),
	}
}

// URLs returns the customers and transactions request URLs.
func (f *Fetcher) URLs() (customers, transactions string) {
	return f.customersURL, f.transactionsURL
}

// Fetch issues both requests concurrently and waits for both. Any transport
// error, non-2xx status or malformed body fails the whole fetch.
func (f *Fetcher) Fetch(ctx context.Context) (core.Dataset, error) {
	start := time.Now()
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	var (
		customers    []core.Customer
		transactions []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return f.getJSON(gctx, f.customersURL, &customers)
	})
	g.Go(func() error {
		return f.getJSON(gctx, f.transactionsURL, &transactions)
	})

	if err := g.Wait(); err != nil {
		metrics.FetchFailures.WithLabelValues(sourceName).Inc()
		metrics.FetchDuration.WithLabelValues(sourceName, "error").Observe(time.Since(start).Seconds())
		f.logger.ErrorContext(ctx, "Error fetching data",
			applog.FieldOperation, applog.OpFetch,
			applog.FieldError, err,
			applog.FieldDuration, time.Since(start).Milliseconds())
		return core.Dataset{}, err
	}

	metrics.FetchDuration.WithLabelValues(sourceName, "ok").Observe(time.Since(start).Seconds())
	f.logger.DebugContext(ctx, "Dataset fetched",
		applog.FieldCustomers, len(customers),
		applog.FieldTransaction, len(transactions),
		applog.FieldDuration, time.Since(start).Milliseconds())
	return core.Dataset{Customers: customers, Transactions: transactions}, nil
}

func (f *Fetcher) getJSON(ctx context.Context, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		f.logger.WarnContext(ctx, "Unexpected upstream status",
			applog.FieldURL, url,
			applog.FieldStatusCode, resp.StatusCode)
		return fmt.Errorf("get %s: %w: %d", url, ErrStatus, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
