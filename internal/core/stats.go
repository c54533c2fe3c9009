package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DefaultTimelineSize is the number of points shown by the dashboard chart.
const DefaultTimelineSize = 10

var hundred = decimal.NewFromInt(100)

// Stats are the headline totals. They are always computed over the whole
// collection, never over a filtered view.
type Stats struct {
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	Balance      decimal.Decimal
	// Ratio is income as a whole percentage of expense; 100 without expenses.
	Ratio int64
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// MonthTotals is the income and expense of one calendar month.
type MonthTotals struct {
	Month   string // YYYY-MM
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// TimelinePoint is one chart sample.
type TimelinePoint struct {
	Label  string // MM/DD
	Amount decimal.Decimal
	Type   Type
}

// ComputeStats sums amounts per type. Negative amounts, which can only come
// from a record built in code, count as zero like any other malformed value.
func ComputeStats(list []Transaction) Stats {
	income, expense := decimal.Zero, decimal.Zero
	for _, t := range list {
		amt := safeAmount(t.Amount)
		switch t.Type {
		case Income:
			income = income.Add(amt)
		case Expense:
			expense = expense.Add(amt)
		}
	}
	s := Stats{
		TotalIncome:  income,
		TotalExpense: expense,
		Balance:      income.Sub(expense),
		Ratio:        100,
	}
	if expense.IsPositive() {
		s.Ratio = income.Mul(hundred).Div(expense).Round(0).IntPart()
	}
	return s
}

// ExpenseByCategory totals expenses per category in first-seen order.
func ExpenseByCategory(list []Transaction) []CategoryAmount {
	idx := map[string]int{}
	var out []CategoryAmount
	for _, t := range list {
		if t.Type != Expense {
			continue
		}
		i, ok := idx[t.Category]
		if !ok {
			i = len(out)
			idx[t.Category] = i
			out = append(out, CategoryAmount{Name: t.Category, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(safeAmount(t.Amount))
	}
	return out
}

// Timeline returns up to n chart points taken from the oldest end of the
// newest-first collection.
func Timeline(list []Transaction, n int) []TimelinePoint {
	if n <= 0 {
		n = DefaultTimelineSize
	}
	out := make([]TimelinePoint, 0, min(n, len(list)))
	for i := len(list) - 1; i >= 0 && len(out) < n; i-- {
		t := list[i]
		out = append(out, TimelinePoint{
			Label:  t.Date.Format("01/02"),
			Amount: safeAmount(t.Amount),
			Type:   t.Type,
		})
	}
	return out
}

// Monthly groups income and expense by calendar month, oldest first.
func Monthly(list []Transaction) []MonthTotals {
	byMonth := map[string]*MonthTotals{}
	for _, t := range list {
		key := t.Date.Format("2006-01")
		m, ok := byMonth[key]
		if !ok {
			m = &MonthTotals{Month: key, Income: decimal.Zero, Expense: decimal.Zero}
			byMonth[key] = m
		}
		switch t.Type {
		case Income:
			m.Income = m.Income.Add(safeAmount(t.Amount))
		case Expense:
			m.Expense = m.Expense.Add(safeAmount(t.Amount))
		}
	}
	out := make([]MonthTotals, 0, len(byMonth))
	for _, m := range byMonth {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

func safeAmount(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
