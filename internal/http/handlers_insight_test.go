package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"clinica/internal/core"
	"clinica/internal/insight"
	"clinica/internal/ledger/memory"
)

func decodeInsight(t *testing.T, body []byte) insightResponse {
	t.Helper()
	var resp insightResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode insight response: %v (%s)", err, body)
	}
	return resp
}

func TestInsightCachedByCollection(t *testing.T) {
	req := &countingRequester{text: "## Analisi\nTutto bene."}
	srv := newTestServer(t, memory.New(memory.Seed()), req)

	rr := do(t, srv, http.MethodPost, "/api/insight", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if resp := decodeInsight(t, rr.Body.Bytes()); resp.Text != req.text || resp.Cached {
		t.Fatalf("first answer = %+v", resp)
	}

	rr = do(t, srv, http.MethodPost, "/api/insight", "")
	if resp := decodeInsight(t, rr.Body.Bytes()); !resp.Cached {
		t.Fatalf("second answer should come from cache: %+v", resp)
	}
	if req.calls.Load() != 1 {
		t.Fatalf("provider calls = %d, want 1", req.calls.Load())
	}

	// a change to the collection invalidates the answer
	if rr := do(t, srv, http.MethodDelete, "/api/transactions/1", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}
	do(t, srv, http.MethodPost, "/api/insight", "")
	if req.calls.Load() != 2 {
		t.Fatalf("provider calls = %d, want 2", req.calls.Load())
	}
}

func TestInsightProviderFailure(t *testing.T) {
	req := &countingRequester{err: errors.New("quota exceeded")}
	srv := newTestServer(t, memory.New(memory.Seed()), req)

	for i := 0; i < 2; i++ {
		rr := do(t, srv, http.MethodPost, "/api/insight", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d", rr.Code)
		}
		if resp := decodeInsight(t, rr.Body.Bytes()); resp.Text != insight.Placeholder {
			t.Fatalf("text = %q", resp.Text)
		}
	}
	if req.calls.Load() != 2 {
		t.Fatalf("placeholder answers must not be cached, calls = %d", req.calls.Load())
	}
}

func TestInsightUnconfigured(t *testing.T) {
	srv := newTestServer(t, memory.New(memory.Seed()), nil)

	rr := do(t, srv, http.MethodPost, "/api/insight", "")
	if resp := decodeInsight(t, rr.Body.Bytes()); resp.Text != insight.Placeholder {
		t.Fatalf("text = %q", resp.Text)
	}
}

func TestInsightEmptyCollection(t *testing.T) {
	req := &countingRequester{text: "unused"}
	srv := newTestServer(t, memory.New(nil), req)

	rr := do(t, srv, http.MethodPost, "/api/insight", "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rr.Code)
	}
	if req.calls.Load() != 0 {
		t.Fatal("provider must not be called for an empty collection")
	}
}

type blockingRequester struct {
	started     chan struct{}
	release     chan struct{}
	hadDeadline atomic.Bool
}

func (b *blockingRequester) Analyze(ctx context.Context, _ []core.Transaction) (string, error) {
	_, ok := ctx.Deadline()
	b.hadDeadline.Store(ok)
	select {
	case b.started <- struct{}{}:
	default:
	}
	select {
	case <-b.release:
		return "## Analisi\nMargini stabili.", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestInsightSurvivesFirstCallerDisconnect(t *testing.T) {
	req := &blockingRequester{started: make(chan struct{}, 1), release: make(chan struct{})}
	srv := newTestServer(t, memory.New(memory.Seed()), req)

	serve := func(ctx context.Context) <-chan insightResponse {
		done := make(chan insightResponse, 1)
		go func() {
			r := httptest.NewRequest(http.MethodPost, "/api/insight", nil).WithContext(ctx)
			rr := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rr, r)
			var resp insightResponse
			_ = json.Unmarshal(rr.Body.Bytes(), &resp)
			done <- resp
		}()
		return done
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	defer cancelFirst()
	first := serve(firstCtx)

	select {
	case <-req.started:
	case <-time.After(5 * time.Second):
		t.Fatal("provider was never called")
	}
	second := serve(context.Background())
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	time.Sleep(20 * time.Millisecond)
	close(req.release)

	for name, ch := range map[string]<-chan insightResponse{"first": first, "second": second} {
		select {
		case resp := <-ch:
			if resp.Text != "## Analisi\nMargini stabili." {
				t.Errorf("%s caller text = %q", name, resp.Text)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("%s caller never answered", name)
		}
	}
	if !req.hadDeadline.Load() {
		t.Error("shared insight request must still carry a deadline")
	}
}
