package trace

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	applog "txview/internal/log"
	"txview/internal/metrics"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"

	// HeaderRequestID carries the request ID in both directions.
	HeaderRequestID = "X-Request-Id"

	unmatchedRoute = "unmatched"
)

// Middleware assigns request IDs, logs every request and records HTTP
// metrics.
type Middleware struct {
	logger    *applog.Logger
	extractIP func(*http.Request) string
	detect    func(*http.Request) bool
}

// NewMiddleware creates a new trace middleware. extractIP and detect may
// be nil.
func NewMiddleware(logger *applog.Logger, extractIP func(*http.Request) string, detect func(*http.Request) bool) *Middleware {
	return &Middleware{
		logger:    logger.WithComponent(applog.ComponentHTTP),
		extractIP: extractIP,
		detect:    detect,
	}
}

// Middleware returns HTTP middleware for request tracing
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.RemoteAddr
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := incomingRequestID(r)
		w.Header().Set(HeaderRequestID, requestID)

		logger := m.logger.With(applog.FieldRequestID, requestID, applog.FieldClientIP, clientIP)
		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = applog.WithContext(ctx, logger)
		r = r.WithContext(ctx)

		if m.detect != nil && m.detect(r) {
			metrics.SuspiciousRequests.Inc()
			logger.WarnContext(ctx, "Suspicious request",
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldUserAgent, r.UserAgent())
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		route := r.Pattern
		if route == "" {
			route = unmatchedRoute
		}
		metrics.RequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rw.statusCode)).Inc()
		metrics.RequestLatency.WithLabelValues(route, r.Method).Observe(duration.Seconds())

		fields := applog.NewFields().
			WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent()).
			WithHTTPResponse(rw.statusCode, duration.Milliseconds()).
			ToSlice()
		switch {
		case rw.statusCode >= 500:
			logger.ErrorContext(ctx, "HTTP request completed", fields...)
		case rw.statusCode >= 400:
			logger.WarnContext(ctx, "HTTP request completed", fields...)
		default:
			logger.InfoContext(ctx, "HTTP request completed", fields...)
		}
	})
}

// incomingRequestID reuses a well-formed client-supplied ID or generates a
// new one.
func incomingRequestID(r *http.Request) string {
	if id := r.Header.Get(HeaderRequestID); id != "" {
		if _, err := uuid.Parse(id); err == nil {
			return id
		}
	}
	return uuid.NewString()
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
