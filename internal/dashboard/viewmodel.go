package dashboard

import (
	"sync"

	"clinica/internal/core"
)

// ViewModel derives what the dashboard shows from State and the current
// filter. Filters only narrow the table; totals and charts always cover
// the whole collection.
type ViewModel struct {
	state  *State
	mu     sync.RWMutex
	filter core.Filter
}

func NewViewModel(state *State) *ViewModel {
	return &ViewModel{state: state}
}

// Visible is the filtered table, newest first.
func (v *ViewModel) Visible() []core.Transaction {
	return core.Filtered(v.state.Snapshot(), v.Filter())
}

func (v *ViewModel) All() []core.Transaction {
	return v.state.Snapshot()
}

func (v *ViewModel) Stats() core.Stats {
	return core.ComputeStats(v.state.Snapshot())
}

func (v *ViewModel) ExpenseByCategory() []core.CategoryAmount {
	return core.ExpenseByCategory(v.state.Snapshot())
}

// Timeline returns the n oldest points of the collection; n <= 0 uses
// core.DefaultTimelineSize.
func (v *ViewModel) Timeline(n int) []core.TimelinePoint {
	if n <= 0 {
		n = core.DefaultTimelineSize
	}
	return core.Timeline(v.state.Snapshot(), n)
}

func (v *ViewModel) Monthly() []core.MonthTotals {
	return core.Monthly(v.state.Snapshot())
}

// Categories lists every category of both vocabularies for the filter menu.
func (v *ViewModel) Categories() []string {
	return core.AllCategories()
}

func (v *ViewModel) Filter() core.Filter {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.filter
}

func (v *ViewModel) SetFilter(f core.Filter) {
	v.mu.Lock()
	v.filter = f
	v.mu.Unlock()
}

func (v *ViewModel) ResetFilters() {
	v.SetFilter(core.Filter{})
}
