package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"testing/fstest"

	"txview/internal/core"
	"txview/internal/dashboard"
	applog "txview/internal/log"
)

const aliceBobJSON = `{
  "customers": [{"id":1,"name":"Alice"},{"id":2,"name":"Bob"},{"id":3,"name":"Carol"}],
  "transactions": [
    {"id":1,"customer_id":1,"date":"2024-01-01","amount":10},
    {"id":2,"customer_id":1,"date":"2024-01-02","amount":20},
    {"id":3,"customer_id":2,"date":"2024-01-01","amount":5}
  ]
}`

type fakeFetcher struct {
	d           core.Dataset
	err         error
	invalidated int
}

func (f *fakeFetcher) Fetch(context.Context) (core.Dataset, error) { return f.d, f.err }

func (f *fakeFetcher) Invalidate(context.Context) error {
	f.invalidated++
	return nil
}

func discardLogger() *applog.Logger {
	return applog.New(applog.Config{Output: io.Discard})
}

func newFetcher(t *testing.T) *fakeFetcher {
	t.Helper()
	var d core.Dataset
	if err := json.Unmarshal([]byte(aliceBobJSON), &d); err != nil {
		t.Fatalf("decode dataset: %v", err)
	}
	return &fakeFetcher{d: d}
}

func newTestServer(t *testing.T, f *fakeFetcher, load bool, mutate ...func(*Options)) (*Server, *dashboard.State) {
	t.Helper()
	logger := discardLogger()
	state := dashboard.NewState(f, dashboard.NewPages(0, 0, logger), logger)
	if load {
		if err := state.Load(context.Background()); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
	}
	opts := Options{
		State:              state,
		Logger:             logger,
		CORSAllowedOrigins: []string{"*"},
		RefreshPerMinute:   10,
	}
	for _, m := range mutate {
		m(&opts)
	}
	srv := NewServer(":0", opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, state
}

func do(t *testing.T, srv *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

var pageIDPattern = regexp.MustCompile(`name="page" value="([^"]+)"`)

// openPage loads the dashboard and returns the page id it was given.
func openPage(t *testing.T, srv *Server) string {
	t.Helper()
	rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	m := pageIDPattern.FindStringSubmatch(rr.Body.String())
	if m == nil {
		t.Fatalf("index has no page id:\n%s", rr.Body.String())
	}
	return m[1]
}

func decodeChart(t *testing.T, rr *httptest.ResponseRecorder) chartResponse {
	t.Helper()
	var got chartResponse
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return got
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestIndexAndHealth(t *testing.T) {
	srv, _ := newTestServer(t, newFetcher(t), true)

	rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"Customer Transactions", "Alice", "Bob", `id="table-body"`, "3 customers"} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}
	if strings.Contains(body, "Carol") {
		t.Error("customer without transactions should not be rendered")
	}
	if rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("security headers not applied")
	}
	if rr.Header().Get("X-Request-Id") == "" {
		t.Error("request id not set")
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	rr = do(t, srv, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown path status=%d", rr.Code)
	}
}

func TestNotLoaded(t *testing.T) {
	srv, _ := newTestServer(t, newFetcher(t), false)

	tests := []struct {
		name string
		req  *http.Request
	}{
		{"readyz", httptest.NewRequest(http.MethodGet, "/readyz", nil)},
		{"table", httptest.NewRequest(http.MethodGet, "/ui/table", nil)},
		{"select", postForm("/ui/select", url.Values{"page": {"p"}, "id": {"1"}, "group": {"0"}, "row": {"0"}})},
		{"views", httptest.NewRequest(http.MethodGet, "/api/views", nil)},
		{"chart by id", httptest.NewRequest(http.MethodGet, "/api/chart?id=1", nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, tt.req)
			if rr.Code != http.StatusServiceUnavailable {
				t.Fatalf("status=%d, want 503", rr.Code)
			}
		})
	}

	rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("index should render before load, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Data not loaded") {
		t.Error("index should say the data is not loaded")
	}
}

func TestTableFilter(t *testing.T) {
	srv, _ := newTestServer(t, newFetcher(t), true)

	tests := []struct {
		name     string
		query    string
		wantRows int
		want     []string
		notWant  []string
	}{
		{name: "empty criteria", query: "", wantRows: 3, want: []string{"Alice", "Bob"}},
		{name: "amount prefix", query: "amount=1", wantRows: 2, want: []string{"Alice", `rowspan="2"`}, notWant: []string{"Bob"}},
		{name: "amount is trimmed", query: "amount=+1+", wantRows: 2, want: []string{"Alice"}},
		{name: "name is case-insensitive", query: "customer=BO", wantRows: 1, want: []string{"Bob"}, notWant: []string{"Alice"}},
		{name: "no match", query: "customer=zzz", wantRows: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/ui/table?"+tt.query, nil))
			if rr.Code != http.StatusOK {
				t.Fatalf("status=%d", rr.Code)
			}
			body := rr.Body.String()
			if got := strings.Count(body, `class="txn-row`); got != tt.wantRows {
				t.Errorf("rows = %d, want %d\n%s", got, tt.wantRows, body)
			}
			for _, w := range tt.want {
				if !strings.Contains(body, w) {
					t.Errorf("body missing %q", w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(body, w) {
					t.Errorf("body should not contain %q", w)
				}
			}
		})
	}

	rr := do(t, srv, httptest.NewRequest(http.MethodPost, "/ui/table", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /ui/table status=%d, want 405", rr.Code)
	}
}

func TestSelectRow(t *testing.T) {
	srv, state := newTestServer(t, newFetcher(t), true)
	page := openPage(t, srv)

	rr := do(t, srv, postForm("/ui/select", url.Values{
		"page": {page}, "customer": {""}, "amount": {"1"}, "id": {"1"}, "group": {"0"}, "row": {"1"},
	}))
	if rr.Code != http.StatusOK {
		t.Fatalf("select status=%d body=%s", rr.Code, rr.Body.String())
	}
	trigger := rr.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, `"chart:updated"`) || !strings.Contains(trigger, `"generation":1`) || !strings.Contains(trigger, `"page":"`+page+`"`) {
		t.Errorf("HX-Trigger = %s", trigger)
	}
	body := rr.Body.String()
	if got := strings.Count(body, "txn-row selected"); got != 1 {
		t.Errorf("selected rows = %d, want 1", got)
	}
	if strings.Contains(body, "Bob") {
		t.Error("select should keep the filter from the click")
	}

	chart := state.Pages().Chart(page)
	if chart == nil || chart.Title != "Alice" {
		t.Fatalf("page chart = %+v", chart)
	}

	// A second selection on the same page replaces the first chart.
	rr = do(t, srv, postForm("/ui/select", url.Values{"page": {page}, "id": {"2"}, "group": {"1"}, "row": {"0"}}))
	if rr.Code != http.StatusOK {
		t.Fatalf("second select status=%d", rr.Code)
	}
	if !chart.Destroyed() {
		t.Error("previous chart should be destroyed")
	}

	rr = do(t, srv, httptest.NewRequest(http.MethodGet, "/ui/chart?page="+page, nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Bob") {
		t.Fatalf("chart partial status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestSelectRow_PagesAreIndependent(t *testing.T) {
	srv, _ := newTestServer(t, newFetcher(t), true)
	pageA, pageB := openPage(t, srv), openPage(t, srv)
	if pageA == pageB {
		t.Fatal("each page load should get its own id")
	}

	for _, sel := range []url.Values{
		{"page": {pageA}, "id": {"1"}, "group": {"0"}, "row": {"0"}},
		{"page": {pageB}, "id": {"2"}, "group": {"1"}, "row": {"0"}},
	} {
		if rr := do(t, srv, postForm("/ui/select", sel)); rr.Code != http.StatusOK {
			t.Fatalf("select %v status=%d", sel, rr.Code)
		}
	}

	for page, want := range map[string]string{pageA: "Alice", pageB: "Bob"} {
		rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/chart?page="+page, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("chart status=%d", rr.Code)
		}
		if got := decodeChart(t, rr); got.Title != want || got.Generation != 1 {
			t.Errorf("page chart = %+v, want %s at generation 1", got, want)
		}

		rr = do(t, srv, httptest.NewRequest(http.MethodGet, "/ui/chart?page="+page, nil))
		if !strings.Contains(rr.Body.String(), want) {
			t.Errorf("chart partial for %s = %s", want, rr.Body.String())
		}
	}

	rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/", nil))
	body := rr.Body.String()
	if strings.Contains(body, "chart-summary") || !strings.Contains(body, "Select a transaction") {
		t.Error("a new visitor should start without a chart")
	}
}

func TestSelectRowErrors(t *testing.T) {
	srv, _ := newTestServer(t, newFetcher(t), true)

	tests := []struct {
		name       string
		req        *http.Request
		wantStatus int
	}{
		{"unknown customer", postForm("/ui/select", url.Values{"page": {"p"}, "id": {"99"}, "group": {"0"}, "row": {"0"}}), http.StatusNotFound},
		{"filtered out customer", postForm("/ui/select", url.Values{"page": {"p"}, "amount": {"1"}, "id": {"2"}, "group": {"1"}, "row": {"0"}}), http.StatusNotFound},
		{"missing id", postForm("/ui/select", url.Values{"page": {"p"}, "group": {"0"}, "row": {"0"}}), http.StatusBadRequest},
		{"missing page", postForm("/ui/select", url.Values{"id": {"1"}, "group": {"0"}, "row": {"0"}}), http.StatusBadRequest},
		{"bad row", postForm("/ui/select", url.Values{"page": {"p"}, "id": {"1"}, "group": {"0"}, "row": {"x"}}), http.StatusBadRequest},
		{"negative group", postForm("/ui/select", url.Values{"page": {"p"}, "id": {"1"}, "group": {"-1"}, "row": {"0"}}), http.StatusBadRequest},
		{"wrong method", httptest.NewRequest(http.MethodGet, "/ui/select", nil), http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, tt.req)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status=%d, want %d", rr.Code, tt.wantStatus)
			}
			if rr.Header().Get("HX-Trigger") != "" {
				t.Error("failed selection must not update the chart")
			}
			if tt.wantStatus != http.StatusMethodNotAllowed && !strings.Contains(rr.Body.String(), "error-row") {
				t.Errorf("body = %q, want an error row", rr.Body.String())
			}
		})
	}
}

func TestAPIChart(t *testing.T) {
	srv, state := newTestServer(t, newFetcher(t), true)
	page := openPage(t, srv)

	for _, path := range []string{"/api/chart", "/api/chart?page=" + page, "/api/chart?page=unknown"} {
		rr := do(t, srv, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusNotFound {
			t.Fatalf("%s without selection status=%d, want 404", path, rr.Code)
		}
	}

	rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/chart?id=1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("by id status=%d", rr.Code)
	}
	got := decodeChart(t, rr)
	if got.Title != "Alice" || got.Generation != 0 {
		t.Errorf("chart = %+v", got)
	}
	if got.Config.Type != "bar" || len(got.Config.Data.Labels) != 2 {
		t.Errorf("config = %+v", got.Config)
	}
	if state.Pages().Chart(page) != nil {
		t.Error("read-only chart lookup must not change any page")
	}

	do(t, srv, postForm("/ui/select", url.Values{"page": {page}, "id": {"2"}, "group": {"1"}, "row": {"0"}}))
	rr = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/chart?page="+page, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("page chart status=%d", rr.Code)
	}
	if got := decodeChart(t, rr); got.Title != "Bob" || got.Generation != 1 {
		t.Errorf("page chart = %+v", got)
	}

	rr = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/chart?id=nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown id status=%d", rr.Code)
	}
}

func TestAPIViews(t *testing.T) {
	srv, _ := newTestServer(t, newFetcher(t), true)

	req := httptest.NewRequest(http.MethodGet, "/api/views?customer=ali", nil)
	req.Header.Set("Origin", "https://example.com")
	rr := do(t, srv, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" && got != "https://example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	var got viewsResponse
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Views) != 1 || got.Views[0].Name != "Alice" || got.Transactions != 2 {
		t.Errorf("views = %+v", got)
	}
	if got.Views[0].TransactionCount != len(got.Views[0].Transactions) {
		t.Error("transactionCount must equal the number of transactions")
	}
}

func TestRefresh(t *testing.T) {
	f := newFetcher(t)
	srv, _ := newTestServer(t, f, true, func(o *Options) { o.RefreshPerMinute = 2 })

	rr := do(t, srv, httptest.NewRequest(http.MethodPost, "/refresh", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("refresh status=%d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), `"dataset:refreshed"`) {
		t.Errorf("HX-Trigger = %s", rr.Header().Get("HX-Trigger"))
	}
	if f.invalidated != 1 {
		t.Errorf("invalidated = %d, want 1", f.invalidated)
	}

	f.err = errors.New("upstream down")
	rr = do(t, srv, httptest.NewRequest(http.MethodPost, "/refresh", nil))
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("failed refresh status=%d, want 502", rr.Code)
	}

	rr = do(t, srv, httptest.NewRequest(http.MethodPost, "/refresh", nil))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("third refresh status=%d, want 429", rr.Code)
	}

	// The previous dataset stays after a failed refresh.
	rr = do(t, srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("readyz after failed refresh status=%d", rr.Code)
	}
}

func TestStaticAssets(t *testing.T) {
	srv, _ := newTestServer(t, newFetcher(t), true)

	rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("static status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "chart:updated") {
		t.Error("app.js should listen for chart updates")
	}
	if rr.Header().Get("Cache-Control") == "" {
		t.Error("static assets should be cacheable")
	}
}

func TestTemplateParseErrorPath(t *testing.T) {
	srv, _ := newTestServer(t, newFetcher(t), true, func(o *Options) { o.Templates = fstest.MapFS{} })

	rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for missing templates, got %d", rr.Code)
	}

	rr = do(t, srv, httptest.NewRequest(http.MethodGet, "/ui/table", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 table partial, got %d", rr.Code)
	}
}
