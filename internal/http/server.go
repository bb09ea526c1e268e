package http

import (
	"context"
	"encoding/json"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/cors"

	"txview/internal/dashboard"
	applog "txview/internal/log"
	"txview/internal/metrics"
	"txview/internal/middleware/ratelimit"
	"txview/internal/middleware/security"
	"txview/internal/middleware/trace"
	appweb "txview/web"
)

const (
	defaultRefreshTimeout = 15 * time.Second
	staticMaxAge          = 3600
)

// Options configures NewServer. State is required; Templates and Static
// default to the embedded web assets.
type Options struct {
	State              *dashboard.State
	Logger             *applog.Logger
	CORSAllowedOrigins []string
	TrustedProxies     []string
	RefreshPerMinute   int
	RefreshTimeout     time.Duration
	Templates          fs.FS
	Static             fs.FS
}

type Server struct {
	http.Server
	templates      *template.Template
	state          *dashboard.State
	logger         *applog.Logger
	limiter        *ratelimit.Limiter
	refreshTimeout time.Duration

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.Templates == nil {
		opts.Templates = appweb.TemplatesFS
	}
	if opts.Static == nil {
		opts.Static = appweb.StaticFS
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = defaultRefreshTimeout
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		state:          opts.State,
		logger:         opts.Logger.WithComponent(applog.ComponentHTTP),
		limiter:        ratelimit.NewLimiter(ratelimit.Config{Requests: opts.RefreshPerMinute, Window: time.Minute}),
		refreshTimeout: opts.RefreshTimeout,
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(opts.Templates, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", applog.FieldError, err)
	} else {
		s.templates = t
	}

	if sub, err := fs.Sub(opts.Static, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(staticMaxAge)(static))
	} else {
		s.logger.Warn("Failed to mount static FS", applog.FieldError, err)
	}

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring trusted proxy", applog.FieldError, err)
		}
	}
	apiCORS := cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", trace.HeaderRequestID},
		ExposedHeaders: []string{trace.HeaderRequestID},
		MaxAge:         300,
	})
	refreshLimit := s.limiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Refresh rate limit exceeded")
		NewHTMXResponse().
			Status(http.StatusTooManyRequests).
			TriggerErrorNotification("Too many refreshes, try again in a minute").
			Write(w)
	})

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("/metrics", metrics.Handler())
	// UI partials
	mux.HandleFunc("/ui/table", s.handleTable)
	mux.HandleFunc("/ui/select", s.handleSelect)
	mux.HandleFunc("/ui/chart", s.handleChart)
	// JSON API
	mux.Handle("/api/views", apiCORS(http.HandlerFunc(s.handleAPIViews)))
	mux.Handle("/api/chart", apiCORS(http.HandlerFunc(s.handleAPIChart)))
	mux.Handle("/refresh", refreshLimit(http.HandlerFunc(s.handleRefresh)))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(opts.Logger, detector.ExtractClientIP, detector.IsSuspicious)
	s.Handler = tracer.Middleware(headers.Middleware(trace.Recover(opts.Logger)(mux)))

	return s
}

var templateFuncs = template.FuncMap{
	// json renders v for hx-vals attributes.
	"json": func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once a dataset has been loaded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.state.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("dataset not loaded"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
