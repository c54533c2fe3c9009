package http

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"clinica/internal/core"
	"clinica/internal/insight"
	"clinica/internal/log"
)

const insightTimeout = 90 * time.Second

type insightResponse struct {
	Text   string `json:"text"`
	Cached bool   `json:"cached"`
}

// handleInsight analyses the whole stored collection. Answers are cached by
// collection fingerprint, so unchanged data is not sent to the provider
// twice; placeholder answers are never cached.
func (s *Server) handleInsight(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	listCtx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	list, err := s.store.List(listCtx)
	cancel()
	if err != nil {
		s.storeFailure(w, r, log.OpAnalyze, err)
		return
	}
	if len(list) == 0 {
		writeError(w, r, http.StatusUnprocessableEntity, insight.ErrNothingToAnalyze.Error())
		return
	}

	key, err := fingerprint(list)
	if err != nil {
		s.storeFailure(w, r, log.OpAnalyze, err)
		return
	}
	if text, ok := s.insightCache.Get(key); ok {
		writeJSON(w, r, http.StatusOK, insightResponse{Text: text, Cached: true})
		return
	}

	// Callers joining the same key share one request, so it must outlive
	// whichever caller started it.
	v, err, _ := s.insightGroup.Do(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), insightTimeout)
		defer cancel()
		return s.insight.Request(ctx, list)
	})
	if err != nil {
		if errors.Is(err, insight.ErrNothingToAnalyze) {
			writeError(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeJSON(w, r, http.StatusOK, insightResponse{Text: insight.Placeholder})
		return
	}
	text := v.(string)
	if text != insight.Placeholder && text != insight.EmptyAnswer {
		s.insightCache.Set(key, text)
	}
	writeJSON(w, r, http.StatusOK, insightResponse{Text: text})
}

// fingerprint identifies a collection by the hash of its canonical encoding.
func fingerprint(list []core.Transaction) (string, error) {
	data, err := core.EncodeTransactions(list)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
