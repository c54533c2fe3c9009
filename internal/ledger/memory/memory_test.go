package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"clinica/internal/core"
	"clinica/internal/ledger"
)

func TestMemoryStoreCreateListDelete(t *testing.T) {
	ctx := context.Background()
	s := New(Seed())

	list, err := s.List(ctx)
	if err != nil || len(list) != 2 {
		t.Fatalf("unexpected seed: list=%v err=%v", list, err)
	}

	created, err := s.Create(ctx, core.Transaction{
		Date:        core.NewDate(2024, 4, 1),
		Amount:      decimal.NewFromInt(80),
		Description: "Guanti",
		Type:        core.Expense,
		Category:    "Materiale Medico",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.ID == "1" || created.ID == "2" {
		t.Fatalf("expected a fresh id, got %q", created.ID)
	}

	list, _ = s.List(ctx)
	if len(list) != 3 || list[0].ID != created.ID {
		t.Fatalf("expected new record first, got %v", list)
	}

	got, err := s.Get(ctx, created.ID)
	if err != nil || got.Description != "Guanti" {
		t.Fatalf("get: %v %v", got, err)
	}

	existed, err := s.Delete(ctx, created.ID)
	if err != nil || !existed {
		t.Fatalf("delete: existed=%v err=%v", existed, err)
	}
	existed, err = s.Delete(ctx, created.ID)
	if err != nil || existed {
		t.Fatalf("second delete should be a silent no-op: existed=%v err=%v", existed, err)
	}
	if _, err := s.Get(ctx, created.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateSkipsCollidingIDs(t *testing.T) {
	s := New(Seed())
	ids := []string{"1", "2", "fresh"}
	s.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}
	created, err := s.Create(context.Background(), core.Transaction{
		Date: core.NewDate(2024, 1, 1), Amount: decimal.NewFromInt(1), Description: "x", Type: core.Income,
	})
	if err != nil || created.ID != "fresh" {
		t.Fatalf("expected id 'fresh', got %q err=%v", created.ID, err)
	}
}

func TestListReturnsCopy(t *testing.T) {
	s := New(Seed())
	list, _ := s.List(context.Background())
	list[0].Description = "changed"
	again, _ := s.List(context.Background())
	if again[0].Description != "Affitto mensile studio" {
		t.Fatalf("store was mutated through List result")
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()

	// Missing file -> demo seed
	s, err := NewFromFile(filepath.Join(dir, "missing.json"))
	if err != nil {
		t.Fatalf("missing file: %v", err)
	}
	list, _ := s.List(context.Background())
	if len(list) != 2 {
		t.Fatalf("expected demo seed, got %d records", len(list))
	}

	path := filepath.Join(dir, "seed.json")
	payload := `[{"id":"a","date":"2024-05-01","amount":10,"description":"Visita","type":"INCOME","category":"Consulenze"}]`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s, err = NewFromFile(path)
	if err != nil {
		t.Fatalf("seed file: %v", err)
	}
	list, _ = s.List(context.Background())
	if len(list) != 1 || list[0].ID != "a" {
		t.Fatalf("unexpected list: %v", list)
	}

	if err := os.WriteFile(path, []byte(`{"not":"a list"}`), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	if _, err := NewFromFile(path); !errors.Is(err, core.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}
