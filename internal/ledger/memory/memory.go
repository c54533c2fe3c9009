package memory

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"clinica/internal/core"
	"clinica/internal/ledger"
)

var _ ledger.Store = (*Store)(nil)

type Store struct {
	mu    sync.Mutex
	items []core.Transaction
	newID func() string
}

// New returns a store holding a copy of seed in the given order.
func New(seed []core.Transaction) *Store {
	items := make([]core.Transaction, len(seed))
	copy(items, seed)
	return &Store{items: items, newID: uuid.NewString}
}

// Seed is the demo collection the server starts with when no seed file is
// configured.
func Seed() []core.Transaction {
	return []core.Transaction{
		{
			ID:          "1",
			Date:        core.NewDate(2024, 3, 1),
			Amount:      decimal.NewFromInt(5000),
			Description: "Affitto mensile studio",
			Type:        core.Expense,
			Category:    "Affitto e Struttura",
		},
		{
			ID:          "2",
			Date:        core.NewDate(2024, 3, 5),
			Amount:      decimal.NewFromInt(12500),
			Description: "Rimborso Assicurazioni Convenzionate",
			Type:        core.Income,
			Category:    "Assicurazioni",
		},
	}
}

// NewFromFile seeds the store from a JSON transaction list. A missing file
// falls back to Seed(); a malformed one is an error.
func NewFromFile(path string) (*Store, error) {
	list, err := LoadSeed(path)
	if err != nil {
		return nil, err
	}
	return New(list), nil
}

// LoadSeed reads a seed document, returning Seed() for an empty path or a
// missing file.
func LoadSeed(path string) ([]core.Transaction, error) {
	if path == "" {
		return Seed(), nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Seed(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	list, err := core.ParseTransactions(data)
	if err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return list, nil
}

// List returns a snapshot of the collection.
func (s *Store) List(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(s.items))
	copy(out, s.items)
	return out, nil
}

// Create stores the transaction under a fresh id and returns it.
func (s *Store) Create(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		t.ID = s.newID()
		if core.IndexOf(s.items, t.ID) < 0 {
			break
		}
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.items = core.Prepend(s.items, t)
	return t, nil
}

// Delete removes the transaction with the given id, if present.
func (s *Store) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed bool
	s.items, removed = core.Without(s.items, id)
	return removed, nil
}

func (s *Store) Get(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := core.IndexOf(s.items, id)
	if i < 0 {
		return core.Transaction{}, ledger.ErrNotFound
	}
	return s.items[i], nil
}
