package dashboard

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinica/internal/core"
	"clinica/internal/log"
)

func TestViewModel_FilterAndStats(t *testing.T) {
	state := NewState()
	state.Replace([]core.Transaction{
		{ID: "1", Date: core.NewDate(2024, 3, 1), Amount: decimal.NewFromInt(40), Description: "Affitto mensile studio", Type: core.Expense, Category: "Affitto e Struttura"},
		{ID: "2", Date: core.NewDate(2024, 3, 5), Amount: decimal.NewFromInt(100), Description: "Visita", Type: core.Income, Category: "Visite Specialistiche"},
	})
	vm := NewViewModel(state)

	vm.SetFilter(core.Filter{Type: core.Expense, Search: "aff"})
	visible := vm.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, "1", visible[0].ID)

	stats := vm.Stats()
	assert.True(t, stats.TotalIncome.Equal(decimal.NewFromInt(100)), "stats ignore the filter")
	assert.True(t, stats.TotalExpense.Equal(decimal.NewFromInt(40)))
	assert.True(t, stats.Balance.Equal(decimal.NewFromInt(60)))

	vm.ResetFilters()
	assert.True(t, vm.Filter().IsEmpty())
	assert.Len(t, vm.Visible(), 2)

	assert.Len(t, vm.ExpenseByCategory(), 1)
	assert.Len(t, vm.Timeline(0), 2)
	assert.Len(t, vm.Monthly(), 1)
	assert.Contains(t, vm.Categories(), "Altro")
}

func TestState_SnapshotIsCopy(t *testing.T) {
	state := NewState()
	state.Replace(sampleList())

	snap := state.Snapshot()
	snap[0].Description = "changed"
	assert.Equal(t, "Visita", state.Snapshot()[0].Description)
	assert.Equal(t, 2, state.Len())
}

// slowBackend records how many mutations run at once.
type slowBackend struct {
	inFlight atomic.Int64
	maxSeen  atomic.Int64
	creates  atomic.Int64
}

func (b *slowBackend) Mode() Mode { return ModeLocal }

func (b *slowBackend) Create(context.Context, core.Transaction) error {
	n := b.inFlight.Add(1)
	for {
		max := b.maxSeen.Load()
		if n <= max || b.maxSeen.CompareAndSwap(max, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	b.inFlight.Add(-1)
	b.creates.Add(1)
	return nil
}

func (b *slowBackend) Delete(context.Context, string) error { return nil }

func TestCoordinator_SerializesMutations(t *testing.T) {
	backend := &slowBackend{}
	c := NewCoordinator(backend, log.Discard())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Create(context.Background(), core.Draft{Amount: "1", Description: "double click"})
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(8), backend.creates.Load())
	assert.Equal(t, int64(1), backend.maxSeen.Load())
}

func TestCoordinator_NormalizesDraft(t *testing.T) {
	var got core.Transaction
	backend := &recordingBackend{create: func(t core.Transaction) { got = t }}
	c := NewCoordinator(backend, log.Discard())
	c.today = func() core.Date { return core.NewDate(2024, 6, 30) }

	ok, err := c.Create(context.Background(), core.Draft{Amount: "12,5", Description: "  Ecografo  "})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2024-06-30", got.Date.String())
	assert.Equal(t, core.Income, got.Type)
	assert.Equal(t, "Visite Specialistiche", got.Category)
	assert.Equal(t, "Ecografo", got.Description)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("12.5")))
}

type recordingBackend struct {
	create func(core.Transaction)
}

func (r *recordingBackend) Mode() Mode { return ModeRemote }

func (r *recordingBackend) Create(_ context.Context, t core.Transaction) error {
	r.create(t)
	return nil
}

func (r *recordingBackend) Delete(context.Context, string) error { return nil }
