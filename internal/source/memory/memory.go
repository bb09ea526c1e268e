// Package memory serves a dataset held in process, optionally seeded from
// JSON files.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"txview/internal/core"
)

const (
	CustomersFile    = "customers.json"
	TransactionsFile = "transactions.json"
)

type Store struct {
	mu sync.RWMutex
	d  core.Dataset
}

func New(d core.Dataset) *Store {
	return &Store{d: d.Clone()}
}

// NewFromDir loads customers.json and transactions.json from dir. A missing
// file leaves that collection empty; a malformed one is an error.
func NewFromDir(dir string) (*Store, error) {
	var d core.Dataset
	if err := readJSON(filepath.Join(dir, CustomersFile), &d.Customers); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, TransactionsFile), &d.Transactions); err != nil {
		return nil, err
	}
	return &Store{d: d}, nil
}

// Fetch returns a copy of the held dataset.
func (s *Store) Fetch(_ context.Context) (core.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.d.Clone(), nil
}

// Import replaces the held dataset.
func (s *Store) Import(_ context.Context, d core.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d = d.Clone()
	return nil
}

func readJSON(path string, dst any) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
