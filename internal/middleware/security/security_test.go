package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
	if _, ok := rec.Header()["Cross-Origin-Embedder-Policy"]; ok {
		t.Error("empty COEP should not be sent")
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be sent over plain HTTP")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("HSTS = %q", got)
	}
}

func TestStaticAssetMiddleware(t *testing.T) {
	h := StaticAssetMiddleware(3600)(http.NotFoundHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=3600" {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestDetector_ExtractClientIP(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{name: "direct public peer ignores headers", remoteAddr: "203.0.113.9:1234", xff: "198.51.100.1", want: "203.0.113.9"},
		{name: "trusted proxy forwards first hop", remoteAddr: "10.0.0.2:80", xff: "198.51.100.1, 10.0.0.3", want: "198.51.100.1"},
		{name: "trusted proxy with real ip", remoteAddr: "127.0.0.1:80", xri: "198.51.100.7", want: "198.51.100.7"},
		{name: "trusted proxy with garbage header", remoteAddr: "192.168.1.1:80", xff: "not-an-ip", want: "192.168.1.1"},
		{name: "unparseable remote addr", remoteAddr: "pipe", want: "pipe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := d.ExtractClientIP(req); got != tt.want {
				t.Errorf("ExtractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetector_IsSuspicious(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name   string
		method string
		target string
		ua     string
		want   bool
	}{
		{name: "dashboard", method: http.MethodGet, target: "/ui/table?customer=al", want: false},
		{name: "dotenv probe", method: http.MethodGet, target: "/.env", want: true},
		{name: "sql in query", method: http.MethodGet, target: "/api/views?customer=x%27+union+select", want: true},
		{name: "scanner agent", method: http.MethodGet, target: "/", ua: "sqlmap/1.7", want: true},
		{name: "trace method", method: "TRACE", target: "/", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.ua != "" {
				req.Header.Set("User-Agent", tt.ua)
			}
			if got := d.IsSuspicious(req); got != tt.want {
				t.Errorf("IsSuspicious() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetector_AddTrustedProxy(t *testing.T) {
	d := NewDetector()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:443"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")

	if got := d.ExtractClientIP(req); got != "203.0.113.9" {
		t.Fatalf("untrusted peer: ExtractClientIP() = %q", got)
	}
	if err := d.AddTrustedProxy("203.0.113.0/24"); err != nil {
		t.Fatalf("AddTrustedProxy() error = %v", err)
	}
	if got := d.ExtractClientIP(req); got != "198.51.100.1" {
		t.Fatalf("trusted peer: ExtractClientIP() = %q", got)
	}
	if err := d.AddTrustedProxy("not-a-cidr"); err == nil {
		t.Fatal("AddTrustedProxy() should reject invalid CIDR")
	}
}
