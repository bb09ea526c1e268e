// Command txview-import loads customers and transactions into the SQLite
// source, either from JSON files or from the HTTP endpoints, and
// optionally announces the change over AMQP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"txview/internal/amqp"
	"txview/internal/cli"
	"txview/internal/config"
	"txview/internal/core"
	applog "txview/internal/log"
	"txview/internal/source"
	"txview/internal/source/httpsource"
	"txview/internal/source/memory"
	"txview/internal/source/sqlite"
)

var errEmptyDataset = errors.New("dataset is empty; pass -allow-empty to import it anyway")

type options struct {
	dir        string
	fromHTTP   bool
	dbPath     string
	notify     bool
	allowEmpty bool
	timeout    time.Duration
}

func main() {
	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentImport)

	var opts options
	flag.StringVar(&opts.dir, "dir", cfg.DataDir, "directory holding "+memory.CustomersFile+" and "+memory.TransactionsFile)
	flag.BoolVar(&opts.fromHTTP, "from-http", false, "fetch from SOURCE_BASE_URL instead of reading files")
	flag.StringVar(&opts.dbPath, "db", cfg.SQLiteDBPath, "SQLite database path")
	flag.BoolVar(&opts.notify, "notify", true, "publish a refresh message when AMQP_URL is set")
	flag.BoolVar(&opts.allowEmpty, "allow-empty", false, "import even when both collections are empty")
	flag.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall import timeout")
	flag.Parse()

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, opts.timeout)
	defer cancelTimeout()

	if err := run(ctx, cfg, opts, logger); err != nil {
		logger.Error("Import failed", applog.FieldError, err, applog.FieldOperation, applog.OpImport)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, logger *applog.Logger) error {
	origin, name, err := newOrigin(cfg, opts, logger)
	if err != nil {
		return err
	}

	store, err := sqlite.Open(opts.dbPath, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	d, err := importDataset(ctx, origin, store, opts.allowEmpty)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "Dataset imported",
		applog.FieldOperation, applog.OpImport,
		applog.FieldSource, name,
		applog.FieldCustomers, len(d.Customers),
		applog.FieldTransaction, len(d.Transactions),
		"db", opts.dbPath)

	if !opts.notify || cfg.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return fmt.Errorf("connect to AMQP: %w", err)
	}
	defer client.Close()
	return client.PublishRefresh(ctx, config.SourceSQLite)
}

func newOrigin(cfg *config.Config, opts options, logger *applog.Logger) (source.DatasetFetcher, string, error) {
	if opts.fromHTTP {
		if cfg.SourceBaseURL == "" {
			return nil, "", errors.New("-from-http needs SOURCE_BASE_URL")
		}
		return httpsource.New(httpsource.Config{
			BaseURL:  cfg.SourceBaseURL,
			ProxyURL: cfg.SourceProxyURL,
			Timeout:  cfg.FetchTimeout,
		}, logger), config.SourceHTTP, nil
	}

	files, err := memory.NewFromDir(opts.dir)
	if err != nil {
		return nil, "", err
	}
	return files, opts.dir, nil
}

// importDataset copies one fetch of origin into dst.
func importDataset(ctx context.Context, origin source.DatasetFetcher, dst source.DatasetImporter, allowEmpty bool) (core.Dataset, error) {
	d, err := origin.Fetch(ctx)
	if err != nil {
		return core.Dataset{}, fmt.Errorf("fetch dataset: %w", err)
	}
	if !allowEmpty && len(d.Customers) == 0 && len(d.Transactions) == 0 {
		return core.Dataset{}, errEmptyDataset
	}
	if err := dst.Import(ctx, d); err != nil {
		return core.Dataset{}, fmt.Errorf("import dataset: %w", err)
	}
	return d, nil
}
