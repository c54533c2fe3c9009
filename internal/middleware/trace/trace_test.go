package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"clinica/internal/log"
)

func TestMiddleware_RequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := log.Wrap(slog.New(slog.NewJSONHandler(&buf, nil)), log.ComponentTrace)
	m := NewMiddleware(logger, func(*http.Request) string { return "198.51.100.1" })

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		log.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/transactions", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if seen != "abc-123" || rr.Header().Get(HeaderRequestID) != "abc-123" {
		t.Fatalf("incoming id not propagated: ctx=%q header=%q", seen, rr.Header().Get(HeaderRequestID))
	}
	out := buf.String()
	if !strings.Contains(out, `"status_code":201`) || !strings.Contains(out, `"client_ip":"198.51.100.1"`) {
		t.Fatalf("completion log missing fields: %s", out)
	}
}

func TestMiddleware_RejectsUnsafeRequestID(t *testing.T) {
	m := NewMiddleware(log.Discard(), nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "bad id\nwith newline")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	got := rr.Header().Get(HeaderRequestID)
	if !strings.HasPrefix(got, "req_") {
		t.Fatalf("expected generated id, got %q", got)
	}
}

func TestMiddleware_Metrics(t *testing.T) {
	m := NewMiddleware(nil, nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/boom" {
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))

	for _, p := range []string{"/", "/boom", "/"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	got := m.GetMetrics()
	if got.TotalRequests != 3 || got.ServerErrors != 1 {
		t.Fatalf("metrics = %+v", got)
	}
}

func TestGenerateRequestID_Unique(t *testing.T) {
	a, b := GenerateRequestID(), GenerateRequestID()
	if a == b || !validRequestID.MatchString(a) {
		t.Fatalf("ids %q %q", a, b)
	}
}
