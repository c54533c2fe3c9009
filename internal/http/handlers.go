package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"clinica/internal/core"
	"clinica/internal/ledger"
	"clinica/internal/log"
)

// handleTransactions serves the collection: list, create, and delete by
// query parameter.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.listTransactions(w, r)
	case http.MethodPost:
		s.createTransaction(w, r)
	case http.MethodDelete:
		s.deleteTransaction(w, r, r.URL.Query().Get("id"))
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}

// handleTransaction serves a single record addressed by path.
func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.getTransaction(w, r, id)
	case http.MethodDelete:
		s.deleteTransaction(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	list, err := s.store.List(ctx)
	if err != nil {
		s.storeFailure(w, r, log.OpList, err)
		return
	}
	body, err := core.EncodeTransactions(list)
	if err != nil {
		s.storeFailure(w, r, log.OpList, err)
		return
	}
	writeRawJSON(w, http.StatusOK, body)
}

func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request, id string) {
	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	t, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "transaction not found")
			return
		}
		s.storeFailure(w, r, log.OpList, err)
		return
	}
	writeJSON(w, r, http.StatusOK, t)
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r, s.maxBody)
	if err != nil {
		if errors.Is(err, errBodyTooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, "could not read request body")
		return
	}

	t, err := core.ParseCreateRequest(body, core.DateOf(s.now()))
	if err != nil {
		status, msg := createErrorStatus(err)
		log.FromContext(r.Context()).InfoContext(r.Context(), "Rejected create request",
			log.FieldOperation, log.OpCreate,
			log.FieldError, err)
		writeError(w, r, status, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	created, err := s.store.Create(ctx, t)
	if err != nil {
		s.storeFailure(w, r, log.OpCreate, err)
		return
	}
	w.Header().Set("Location", "/api/transactions/"+created.ID)
	writeJSON(w, r, http.StatusCreated, created)
}

// createErrorStatus maps a rejected create body to a response. Structural
// problems are 400, field-level ones 422.
func createErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrInvalidPayload):
		return http.StatusBadRequest, "request body must be a JSON object"
	case errors.Is(err, core.ErrInvalidAmount):
		return http.StatusUnprocessableEntity, "amount must be a positive number"
	case errors.Is(err, core.ErrEmptyDescription):
		return http.StatusUnprocessableEntity, "description is required"
	case errors.Is(err, core.ErrInvalidType):
		return http.StatusUnprocessableEntity, "type must be INCOME or EXPENSE"
	case errors.Is(err, core.ErrInvalidDate):
		return http.StatusUnprocessableEntity, "date must be YYYY-MM-DD"
	default:
		return http.StatusUnprocessableEntity, "invalid transaction"
	}
}

// deleteTransaction removes id. Deleting an unknown id still answers 204.
func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request, id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "missing transaction id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	if _, err := s.store.Delete(ctx, id); err != nil {
		s.storeFailure(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) storeFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	log.FromContext(r.Context()).ErrorContext(r.Context(), "Store operation failed",
		log.FieldComponent, log.ComponentStore,
		log.FieldOperation, op,
		log.FieldError, err)
	writeError(w, r, http.StatusInternalServerError, "transaction store unavailable")
}

func (s *Server) handleAPINotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, "API route not found")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady checks the backing store within a short deadline.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{"store": "ok"}
	status, code := "ready", http.StatusOK
	if err := s.ready(ctx); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		checks["store"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	writeJSON(w, r, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics reports request, cache and security counters in the
// Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tm := s.tracer.GetMetrics()
	rm := s.limiter.GetMetrics()
	sm := s.detector.GetMetrics()
	hits, misses := s.insightCache.Stats()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", tm.TotalRequests)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", tm.ServerErrors)
	metric("insight_cache_hits_total", "counter", "Insight answers served from cache", hits)
	metric("insight_cache_misses_total", "counter", "Insight answers requested from the provider", misses)
	metric("insight_cache_entries", "gauge", "Current insight cache entries", s.insightCache.Size())
	metric("rate_limit_hits_total", "counter", "Total rate limit hits", rm.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rm.ClientCount)
	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", sm.SuspiciousRequests)
	metric("blocked_requests_total", "counter", "Requests rejected by method", sm.BlockedRequests)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", fmt.Sprintf("%.0f", time.Since(s.started).Seconds()))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"service": "clinica",
		"endpoints": []string{
			"GET /api/transactions",
			"POST /api/transactions",
			"DELETE /api/transactions/{id}",
			"POST /api/insight",
			"GET /healthz",
			"GET /readyz",
		},
	})
}
