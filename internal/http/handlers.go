package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"txview/internal/core"
	"txview/internal/dashboard"
	applog "txview/internal/log"
)

// tableColumns is the column count of the transactions table.
const tableColumns = 4

type pageData struct {
	PageID    string
	Criteria  core.Criteria
	Table     dashboard.Table
	Ready     bool
	LoadedAt  time.Time
	Customers int
}

func (s *Server) render(name string, data any) ([]byte, error) {
	if s.templates == nil {
		return nil, errTemplatesNotLoaded
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("execute %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// handleIndex renders the dashboard page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	if s.templates == nil {
		logger.ErrorContext(ctx, "Templates not loaded", applog.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	c := parseCriteria(r.URL.Query())
	page := s.state.OpenPage()
	data := pageData{
		PageID:    page.ID,
		Criteria:  c,
		Table:     page.OnFilterChanged(ctx, c),
		Ready:     s.state.Ready(),
		LoadedAt:  s.state.LoadedAt(),
		Customers: len(s.state.Base()),
	}
	body, err := s.render("index.html", data)
	if err != nil {
		logger.ErrorContext(ctx, "Index template execution failed", applog.FieldError, err)
		http.Error(w, "error rendering page", http.StatusInternalServerError)
		return
	}
	NewHTMXResponse().BodyHTML(body).Write(w)
}

// handleTable renders the table body for the current filter inputs.
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	if !s.state.Ready() {
		ErrorRow(http.StatusServiceUnavailable, "Data not loaded yet").Write(w)
		return
	}

	table := s.state.OnFilterChanged(ctx, parseCriteria(r.URL.Query()))
	body, err := s.render("table_body", table)
	if err != nil {
		logger.ErrorContext(ctx, "Table template execution failed", applog.FieldError, err)
		ErrorRow(http.StatusInternalServerError, "Error rendering table").Write(w)
		return
	}
	NewHTMXResponse().BodyHTML(body).Write(w)
}

// handleSelect highlights the clicked row and replaces the chart with the
// selected customer's transactions.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		logger.WarnContext(ctx, "Parse form error", applog.FieldError, err)
		ErrorRow(http.StatusBadRequest, "Invalid request format").Write(w)
		return
	}
	ref, err := parseRowRef(r.Form)
	if err != nil {
		ErrorRow(http.StatusBadRequest, "Invalid row: "+err.Error()).Write(w)
		return
	}
	pageID, err := parsePageID(r.Form)
	if err != nil {
		ErrorRow(http.StatusBadRequest, "Invalid row: "+err.Error()).Write(w)
		return
	}

	table, chart, err := s.state.Page(pageID).OnRowSelected(ctx, parseCriteria(r.Form), ref)
	switch {
	case errors.Is(err, dashboard.ErrNotLoaded):
		ErrorRow(http.StatusServiceUnavailable, "Data not loaded yet").Write(w)
		return
	case errors.Is(err, core.ErrCustomerNotFound):
		logger.WarnContext(ctx, "Selected customer not found",
			applog.FieldOperation, applog.OpSelect,
			applog.FieldCustomerID, ref.CustomerID)
		ErrorRow(http.StatusNotFound, "Customer not found").Write(w)
		return
	case err != nil:
		logger.ErrorContext(ctx, "Row selection failed", applog.FieldError, err)
		ErrorRow(http.StatusInternalServerError, "Error selecting row").Write(w)
		return
	}

	body, err := s.render("table_body", table)
	if err != nil {
		logger.ErrorContext(ctx, "Table template execution failed", applog.FieldError, err)
		ErrorRow(http.StatusInternalServerError, "Error rendering table").Write(w)
		return
	}
	NewHTMXResponse().
		BodyHTML(body).
		TriggerChartUpdated(pageID, chart.Generation).
		Write(w)
}

// handleChart renders the server-side view of the page's chart.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}
	ctx := r.Context()

	body, err := s.render("chart", s.state.Pages().Chart(r.URL.Query().Get("page")))
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Chart template execution failed", applog.FieldError, err)
		ErrorPanel(http.StatusInternalServerError, "Error rendering chart").Write(w)
		return
	}
	NewHTMXResponse().BodyHTML(body).Write(w)
}

// handleRefresh re-fetches the dataset, dropping any cached snapshot.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.refreshTimeout)
	defer cancel()
	logger := applog.FromContext(ctx)

	if err := s.state.Reload(ctx); err != nil {
		logger.ErrorContext(ctx, "Dataset refresh failed",
			applog.NewFields().WithOperation(applog.OpRefresh).WithError(err).ToSlice()...)
		ErrorPanel(http.StatusBadGateway, "Failed to refresh data").
			TriggerErrorNotification("Failed to refresh data").
			Write(w)
		return
	}

	customers := len(s.state.Base())
	body := fmt.Sprintf(`<span class="refresh-status">Updated at %s</span>`, s.state.LoadedAt().Format("15:04:05"))
	NewHTMXResponse().
		BodyHTML([]byte(body)).
		TriggerDatasetRefreshed(customers).
		TriggerSuccessNotification(fmt.Sprintf("Loaded %d customers", customers)).
		Write(w)
}
