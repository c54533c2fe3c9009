package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"clinica/internal/core"
	"clinica/internal/log"
)

var (
	// ErrUnavailable means the remote store could not produce a usable
	// collection: transport failure, non-2xx status, wrong content type or
	// an invalid payload.
	ErrUnavailable = errors.New("remote store unavailable")

	// ErrRemoteStatus is a non-2xx answer to a create or delete.
	ErrRemoteStatus = errors.New("remote store rejected the request")
)

const (
	transactionsPath = "/api/transactions"
	maxResponseBytes = 8 << 20
)

// RemoteClient is the remote transaction resource as seen by the dashboard.
type RemoteClient interface {
	List(ctx context.Context) ([]core.Transaction, error)
	Create(ctx context.Context, t core.Transaction) (core.Transaction, error)
	Delete(ctx context.Context, id string) error
}

// RemoteStore talks to the REST transaction resource.
type RemoteStore struct {
	baseURL string
	client  *http.Client
	logger  *log.Logger
}

var _ RemoteClient = (*RemoteStore)(nil)

// NewRemoteStore targets the server at baseURL. A nil client means
// http.DefaultClient; deadlines come from the caller's context.
func NewRemoteStore(baseURL string, client *http.Client, logger *log.Logger) *RemoteStore {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentDashboard)
	}
	return &RemoteStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger,
	}
}

// List fetches the whole collection. Every failure is reported as
// ErrUnavailable.
func (s *RemoteStore) List(ctx context.Context) ([]core.Transaction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+transactionsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if !isJSON(resp.Header.Get("Content-Type")) {
		return nil, fmt.Errorf("%w: content type %q", ErrUnavailable, resp.Header.Get("Content-Type"))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrUnavailable, err)
	}
	list, err := core.ParseTransactions(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return list, nil
}

// Create posts t without its id and returns the record as the server
// stored it.
func (s *RemoteStore) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = ""
	payload, err := json.Marshal(t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("encode transaction: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+transactionsPath, bytes.NewReader(payload))
	if err != nil {
		return core.Transaction{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return core.Transaction{}, fmt.Errorf("%w: create status %d", ErrRemoteStatus, resp.StatusCode)
	}

	var created core.Transaction
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err == nil && len(bytes.TrimSpace(body)) > 0 {
		err = json.Unmarshal(body, &created)
	}
	if err != nil {
		// the write happened; the caller re-fetches anyway
		s.logger.WarnContext(ctx, "Unreadable create response",
			log.FieldOperation, log.OpCreate,
			log.FieldError, err)
	}
	return created, nil
}

// Delete removes id using the path form of the endpoint.
func (s *RemoteStore) Delete(ctx context.Context, id string) error {
	target := s.baseURL + transactionsPath + "/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, target, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: delete status %d", ErrRemoteStatus, resp.StatusCode)
	}
	return nil
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	resp.Body.Close()
}
