// Package sqlite stores the dataset in a SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"txview/internal/core"
	applog "txview/internal/log"
	"txview/internal/metrics"
)

const sourceName = "sqlite"

type Store struct {
	db     *sql.DB
	logger *applog.Logger
}

// Open creates the database directory if needed, connects, and runs
// migrations.
func Open(dbPath string, logger *applog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, logger: logger.WithComponent(applog.ComponentStorage)}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Fetch reads both tables concurrently in insertion order.
func (s *Store) Fetch(ctx context.Context) (core.Dataset, error) {
	start := time.Now()
	var d core.Dataset

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		d.Customers, err = s.customers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		d.Transactions, err = s.transactions(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		metrics.FetchFailures.WithLabelValues(sourceName).Inc()
		metrics.FetchDuration.WithLabelValues(sourceName, "error").Observe(time.Since(start).Seconds())
		s.logger.ErrorContext(ctx, "Error reading dataset",
			applog.FieldOperation, applog.OpFetch,
			applog.FieldError, err)
		return core.Dataset{}, err
	}
	metrics.FetchDuration.WithLabelValues(sourceName, "ok").Observe(time.Since(start).Seconds())
	return d, nil
}

func (s *Store) customers(ctx context.Context) ([]core.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, id_numeric, name FROM customers ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	var out []core.Customer
	for rows.Next() {
		var (
			id      string
			numeric bool
			c       core.Customer
		)
		if err := rows.Scan(&id, &numeric, &c.Name); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		c.ID = core.IDFromText(id, numeric)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}
	return out, nil
}

func (s *Store) transactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, id_numeric, customer_id, customer_id_numeric, date, amount FROM transactions ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			id, customerID             string
			idNumeric, customerNumeric bool
			amount                     string
			t                          core.Transaction
		)
		if err := rows.Scan(&id, &idNumeric, &customerID, &customerNumeric, &t.Date, &amount); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.ID = core.IDFromText(id, idNumeric)
		t.CustomerID = core.IDFromText(customerID, customerNumeric)
		t.Amount = core.AmountFromText(amount)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// Import replaces both tables with d in a single transaction.
func (s *Store) Import(ctx context.Context, d core.Dataset) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range []string{`DELETE FROM transactions`, `DELETE FROM customers`} {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear dataset: %w", err)
		}
	}

	for _, c := range d.Customers {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO customers (id, id_numeric, name) VALUES (?, ?, ?)`,
			c.ID.String(), c.ID.IsNumeric(), c.Name); err != nil {
			return fmt.Errorf("insert customer %s: %w", c.ID, err)
		}
	}
	for _, t := range d.Transactions {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO transactions (id, id_numeric, customer_id, customer_id_numeric, date, amount) VALUES (?, ?, ?, ?, ?, ?)`,
			t.ID.String(), t.ID.IsNumeric(), t.CustomerID.String(), t.CustomerID.IsNumeric(), t.Date, t.Amount.String()); err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}

	s.logger.InfoContext(ctx, "Dataset imported",
		applog.FieldOperation, applog.OpImport,
		applog.FieldCustomers, len(d.Customers),
		applog.FieldTransaction, len(d.Transactions))
	return nil
}
