package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"clinica/internal/log"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(okHandler)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/transactions", nil))

	want := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Referrer-Policy":         "no-referrer",
		"Cache-Control":           "no-store",
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'; base-uri 'none'",
	}
	for k, v := range want {
		if got := rr.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must only be sent over TLS")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("HSTS = %q", got)
	}
}

func TestHeadersMiddleware_EmptyValuesSkipped(t *testing.T) {
	h := NewHeadersMiddleware(HeadersConfig{XFrameOptions: "DENY"}).Middleware(okHandler)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if _, ok := rr.Header()["Content-Security-Policy"]; ok {
		t.Error("empty CSP should not be sent")
	}
	if rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("X-Frame-Options missing")
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	d := NewDetector(log.Discard())

	tests := []struct {
		name   string
		method string
		target string
		ua     string
		want   bool
	}{
		{"plain list", http.MethodGet, "/api/transactions", "curl/8", false},
		{"traversal", http.MethodGet, "/api/../../etc/passwd", "", true},
		{"dotenv probe", http.MethodGet, "/.env", "", true},
		{"injection in query", http.MethodGet, "/api/transactions?id=1%20union%20select", "", true},
		{"scanner agent", http.MethodGet, "/", "sqlmap/1.7", true},
		{"trace method", "TRACE", "/", "", true},
		{"overlong url", http.MethodGet, "/" + strings.Repeat("a", 2100), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", nil)
			req.URL.Path = strings.SplitN(tt.target, "?", 2)[0]
			if i := strings.Index(tt.target, "?"); i >= 0 {
				req.URL.RawQuery = tt.target[i+1:]
			}
			req.Header.Set("User-Agent", tt.ua)
			if got := d.DetectSuspiciousRequest(req); got != tt.want {
				t.Errorf("DetectSuspiciousRequest() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectorMiddleware_BlocksDiagnosticMethods(t *testing.T) {
	d := NewDetector(log.Discard())
	h := d.Middleware(okHandler)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("TRACE", "/", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("TRACE status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/.git/config", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("suspicious GET should be logged, not blocked; status = %d", rr.Code)
	}

	m := d.GetMetrics()
	if m.BlockedRequests != 1 || m.SuspiciousRequests != 2 {
		t.Fatalf("metrics = %+v", m)
	}
}

func TestExtractClientIP(t *testing.T) {
	d := NewDetector(nil)

	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"direct", "203.0.113.9:5000", "", "", "203.0.113.9"},
		{"untrusted forwarder ignored", "203.0.113.9:5000", "198.51.100.1", "", "203.0.113.9"},
		{"trusted proxy xff", "10.0.0.2:80", "198.51.100.1, 10.0.0.2", "", "198.51.100.1"},
		{"trusted proxy real ip", "127.0.0.1:80", "", "198.51.100.7", "198.51.100.7"},
		{"trusted proxy bad header", "192.168.1.1:80", "not-an-ip", "", "192.168.1.1"},
		{"no port", "198.51.100.3", "", "", "198.51.100.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
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

func TestAddTrustedProxy(t *testing.T) {
	d := NewDetector(nil)
	if err := d.AddTrustedProxy("bogus"); err == nil {
		t.Fatal("expected error for invalid CIDR")
	}
	if err := d.AddTrustedProxy("203.0.113.0/24"); err != nil {
		t.Fatalf("AddTrustedProxy: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.5:1234"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	if got := d.ExtractClientIP(req); got != "198.51.100.1" {
		t.Fatalf("ExtractClientIP() = %q", got)
	}
}

func TestCORS(t *testing.T) {
	t.Run("any origin", func(t *testing.T) {
		h := NewCORS(nil).Middleware(okHandler)
		req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Fatalf("allow origin = %q", rr.Header().Get("Access-Control-Allow-Origin"))
		}
	})

	t.Run("preflight", func(t *testing.T) {
		h := NewCORS([]string{"https://clinic.example"}).Middleware(okHandler)
		req := httptest.NewRequest(http.MethodOptions, "/api/transactions/1", nil)
		req.Header.Set("Origin", "https://clinic.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusNoContent {
			t.Fatalf("preflight status = %d", rr.Code)
		}
		if rr.Header().Get("Access-Control-Allow-Origin") != "https://clinic.example" {
			t.Fatalf("allow origin = %q", rr.Header().Get("Access-Control-Allow-Origin"))
		}
		if !strings.Contains(rr.Header().Get("Access-Control-Allow-Methods"), http.MethodDelete) {
			t.Fatalf("allow methods = %q", rr.Header().Get("Access-Control-Allow-Methods"))
		}
	})

	t.Run("unlisted origin", func(t *testing.T) {
		h := NewCORS([]string{"https://clinic.example"}).Middleware(okHandler)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Header().Get("Access-Control-Allow-Origin") != "" {
			t.Fatal("unlisted origin must not be allowed")
		}
	})
}
