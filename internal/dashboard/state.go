// Package dashboard holds the loaded dataset and turns UI events into table
// and chart models.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"txview/internal/core"
	applog "txview/internal/log"
	"txview/internal/metrics"
	"txview/internal/source"
)

// ErrNotLoaded is returned while no dataset has been loaded yet.
var ErrNotLoaded = errors.New("dataset not loaded")

// Events is the UI-event surface of one dashboard page. Each user edit of
// a filter input maps to exactly one OnFilterChanged call.
type Events interface {
	OnFilterChanged(ctx context.Context, c core.Criteria) Table
	OnRowSelected(ctx context.Context, c core.Criteria, ref RowRef) (Table, *Chart, error)
}

// State owns the base views shared by every page and the per-page chart
// boards. The base views are replaced as a whole on every successful load
// and never mutated.
type State struct {
	fetcher source.DatasetFetcher
	pages   *Pages
	logger  *applog.Logger

	mu       sync.RWMutex
	base     []core.CustomerView
	loaded   bool
	loadedAt time.Time
}

func NewState(fetcher source.DatasetFetcher, pages *Pages, logger *applog.Logger) *State {
	return &State{
		fetcher: fetcher,
		pages:   pages,
		logger:  logger.WithComponent(applog.ComponentDashboard),
	}
}

// Load fetches the dataset and rebuilds the base views. On failure the
// previous base, if any, is kept.
func (s *State) Load(ctx context.Context) error {
	d, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	views := core.BuildViews(d)

	s.mu.Lock()
	s.base = views
	s.loaded = true
	s.loadedAt = time.Now()
	s.mu.Unlock()

	metrics.DatasetSize.WithLabelValues("customers").Set(float64(len(d.Customers)))
	metrics.DatasetSize.WithLabelValues("transactions").Set(float64(len(d.Transactions)))
	s.logger.InfoContext(ctx, "Dataset loaded",
		applog.FieldOperation, applog.OpLoad,
		applog.FieldCustomers, len(d.Customers),
		applog.FieldTransaction, len(d.Transactions))
	return nil
}

// Reload drops any cached snapshot in front of the fetcher, then loads.
func (s *State) Reload(ctx context.Context) error {
	if inv, ok := s.fetcher.(source.Invalidator); ok {
		if err := inv.Invalidate(ctx); err != nil {
			s.logger.WarnContext(ctx, "Failed to invalidate dataset cache", applog.FieldError, err)
		}
	}
	return s.Load(ctx)
}

// Ready reports whether a dataset has been loaded.
func (s *State) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// LoadedAt returns the time of the last successful load.
func (s *State) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// Base returns the unfiltered views.
func (s *State) Base() []core.CustomerView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.CustomerView(nil), s.base...)
}

// Filter recomputes the filtered views from the base list.
func (s *State) Filter(c core.Criteria) []core.CustomerView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.ApplyFilter(s.base, c)
}

// Pages returns the per-page chart boards.
func (s *State) Pages() *Pages {
	return s.pages
}

// OpenPage starts a new page with no chart.
func (s *State) OpenPage() *Page {
	return s.Page(s.pages.Open())
}

// Page returns the page with the given id, starting it when it is unknown.
func (s *State) Page(id string) *Page {
	return &Page{ID: id, state: s, board: s.pages.Attach(id)}
}

// OnFilterChanged renders the table for c. Before the first load the table
// is empty.
func (s *State) OnFilterChanged(ctx context.Context, c core.Criteria) Table {
	views := s.Filter(c)
	fields := applog.NewFields().
		WithOperation(applog.OpFilter).
		WithCriteria(c.Name, c.Amount).
		ToSlice()
	s.logger.DebugContext(ctx, "Filter applied", append(fields, applog.FieldCustomers, len(views))...)
	return RenderTable(views, nil)
}

// Page is one open dashboard. Filtering reads the shared base views; row
// selection replaces only this page's chart.
type Page struct {
	ID    string
	state *State
	board *Board
}

var _ Events = (*Page)(nil)

// Chart returns the page's live chart, or nil before the first selection.
func (p *Page) Chart() *Chart {
	return p.board.Current()
}

func (p *Page) OnFilterChanged(ctx context.Context, c core.Criteria) Table {
	return p.state.OnFilterChanged(ctx, c)
}

// OnRowSelected looks ref up in the views rendered for c, highlights it and
// replaces the page's chart with that customer's full transaction list.
func (p *Page) OnRowSelected(ctx context.Context, c core.Criteria, ref RowRef) (Table, *Chart, error) {
	s := p.state
	if !s.Ready() {
		return Table{}, nil, ErrNotLoaded
	}
	views := s.Filter(c)
	v, ok := core.FindView(views, ref.CustomerID)
	if !ok {
		return RenderTable(views, nil), nil, fmt.Errorf("customer %q: %w", ref.CustomerID, core.ErrCustomerNotFound)
	}

	chart := p.board.Show(v.Name, v.Transactions)
	s.logger.DebugContext(ctx, "Row selected",
		applog.FieldOperation, applog.OpSelect,
		applog.FieldPageID, p.ID,
		applog.FieldCustomerID, ref.CustomerID,
		applog.FieldGeneration, chart.Generation)
	return RenderTable(views, &ref), chart, nil
}
