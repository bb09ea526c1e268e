// Package google reads the dataset from two tabs of a Google spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"txview/internal/core"
	applog "txview/internal/log"
	"txview/internal/metrics"
)

const sourceName = "sheets"

// Config selects the spreadsheet, its tabs and the service account.
type Config struct {
	SpreadsheetID     string
	CustomersSheet    string
	TransactionsSheet string
	// CredentialsJSON wins over CredentialsFile.
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc               *gsheet.Service
	spreadsheetID     string
	customersSheet    string
	transactionsSheet string
	logger            *applog.Logger
}

// NewClient creates a read-only Sheets client authenticated with a service
// account.
func NewClient(ctx context.Context, cfg Config, logger *applog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	credentials, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}
	return newClient(ctx, cfg, logger,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
}

func newClient(ctx context.Context, cfg Config, logger *applog.Logger, opts ...goption.ClientOption) (*Client, error) {
	logger = logger.WithComponent(applog.ComponentSheets)
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	logger.InfoContext(ctx, "Google Sheets client ready",
		"spreadsheet_id", cfg.SpreadsheetID,
		"customers_sheet", cfg.CustomersSheet,
		"transactions_sheet", cfg.TransactionsSheet)

	return &Client{
		svc:               svc,
		spreadsheetID:     cfg.SpreadsheetID,
		customersSheet:    cfg.CustomersSheet,
		transactionsSheet: cfg.TransactionsSheet,
		logger:            logger,
	}, nil
}

func loadCredentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials")
	}
}

// Fetch reads both tabs concurrently.
func (c *Client) Fetch(ctx context.Context) (core.Dataset, error) {
	start := time.Now()
	var d core.Dataset

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		values, err := c.readSheet(gctx, c.customersSheet)
		if err != nil {
			return err
		}
		d.Customers, err = parseCustomers(values)
		return err
	})
	g.Go(func() error {
		values, err := c.readSheet(gctx, c.transactionsSheet)
		if err != nil {
			return err
		}
		d.Transactions, err = parseTransactions(values)
		return err
	})

	if err := g.Wait(); err != nil {
		metrics.FetchFailures.WithLabelValues(sourceName).Inc()
		metrics.FetchDuration.WithLabelValues(sourceName, "error").Observe(time.Since(start).Seconds())
		c.logger.ErrorContext(ctx, "Error reading spreadsheet",
			applog.FieldOperation, applog.OpFetch,
			applog.FieldError, err)
		return core.Dataset{}, err
	}
	metrics.FetchDuration.WithLabelValues(sourceName, "ok").Observe(time.Since(start).Seconds())
	return d, nil
}

func (c *Client) readSheet(ctx context.Context, sheet string) ([][]interface{}, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, sheet).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return resp.Values, nil
}
