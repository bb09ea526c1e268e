package http

import (
	"net/http"

	"txview/internal/core"
	"txview/internal/dashboard"
	applog "txview/internal/log"
)

type viewsResponse struct {
	Views        []core.CustomerView `json:"views"`
	Transactions int                 `json:"transactions"`
}

type chartResponse struct {
	Generation uint64                `json:"generation"`
	Title      string                `json:"title"`
	Config     dashboard.ChartConfig `json:"config"`
}

// handleAPIViews returns the filtered views as JSON.
func (s *Server) handleAPIViews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}
	if !s.state.Ready() {
		s.writeJSON(w, r, http.StatusServiceUnavailable, errorBody{Error: dashboard.ErrNotLoaded.Error()})
		return
	}

	views := s.state.Filter(parseCriteria(r.URL.Query()))
	s.writeJSON(w, r, http.StatusOK, viewsResponse{
		Views:        views,
		Transactions: core.TotalTransactions(views),
	})
}

// handleAPIChart returns a Chart.js configuration. With a page it is that
// page's chart; with an id it is built for that customer without touching
// any page.
func (s *Server) handleAPIChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}
	q := r.URL.Query()

	if !q.Has("id") {
		chart := s.state.Pages().Chart(q.Get("page"))
		if chart == nil {
			s.writeJSON(w, r, http.StatusNotFound, errorBody{Error: "no customer selected"})
			return
		}
		s.writeJSON(w, r, http.StatusOK, newChartResponse(chart))
		return
	}

	if !s.state.Ready() {
		s.writeJSON(w, r, http.StatusServiceUnavailable, errorBody{Error: dashboard.ErrNotLoaded.Error()})
		return
	}
	v, ok := core.FindView(s.state.Base(), q.Get("id"))
	if !ok {
		s.writeJSON(w, r, http.StatusNotFound, errorBody{Error: core.ErrCustomerNotFound.Error()})
		return
	}
	s.writeJSON(w, r, http.StatusOK, newChartResponse(dashboard.NewChart(v.Name, v.Transactions)))
}

func newChartResponse(c *dashboard.Chart) chartResponse {
	return chartResponse{Generation: c.Generation, Title: c.Title, Config: c.Config()}
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	if err := writeJSON(w, status, v); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "JSON encoding failed", applog.FieldError, err)
	}
}
