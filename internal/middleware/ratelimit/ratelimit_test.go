package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_Allow(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 2, CleanupInterval: time.Hour})
	defer rl.Stop()

	for i := 0; i < 2; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("third request in the window should be limited")
	}
	if !rl.Allow("5.6.7.8") {
		t.Fatal("other clients have their own window")
	}

	m := rl.GetMetrics()
	if m.TotalHits != 1 || m.ClientCount != 2 {
		t.Fatalf("metrics = %+v", m)
	}
}

func TestLimiter_Defaults(t *testing.T) {
	rl := NewLimiter(Config{})
	defer rl.Stop()
	if rl.requestsPerMinute != 60 || rl.cleanupInterval != 5*time.Minute {
		t.Fatalf("defaults not applied: %d %v", rl.requestsPerMinute, rl.cleanupInterval)
	}
	rl.Stop()
}

func TestLimiter_CleanupStaleEntries(t *testing.T) {
	rl := NewLimiter(DefaultConfig())
	defer rl.Stop()

	rl.Allow("old")
	rl.mu.Lock()
	rl.clients["old"].windowStart = time.Now().Add(-time.Hour)
	rl.mu.Unlock()
	rl.Allow("fresh")

	rl.cleanupStaleEntries()
	if rl.ActiveClients() != 1 {
		t.Fatalf("ActiveClients() = %d, want 1", rl.ActiveClients())
	}
}

func TestMiddleware_OnlyLimitsListedMethods(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	defer rl.Stop()

	ip := func(*http.Request) string { return "9.9.9.9" }
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"slow down"}`))
	}
	h := rl.Middleware(ip, onLimit, http.MethodPost)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(method string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(method, "/api/transactions", nil))
		return rr
	}

	if rr := do(http.MethodPost); rr.Code != http.StatusNoContent {
		t.Fatalf("first POST = %d", rr.Code)
	}
	rr := do(http.MethodPost)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second POST = %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" || rr.Body.String() != `{"error":"slow down"}` {
		t.Fatalf("unexpected rejection: %v %q", rr.Header(), rr.Body.String())
	}
	for i := 0; i < 3; i++ {
		if rr := do(http.MethodGet); rr.Code != http.StatusNoContent {
			t.Fatalf("GET should not be limited, got %d", rr.Code)
		}
	}
}

func TestMiddleware_DefaultRejection(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	defer rl.Stop()
	h := rl.Middleware(func(*http.Request) string { return "x" }, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", rr.Code)
	}
}
