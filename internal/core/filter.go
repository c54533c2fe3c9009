package core

import "strings"

// Filter narrows the visible transaction table. Every zero-valued field is
// a predicate that always holds.
type Filter struct {
	Type      Type
	Category  string
	StartDate Date // inclusive
	EndDate   Date // inclusive
	Search    string
}

// IsEmpty reports whether no predicate is active.
func (f Filter) IsEmpty() bool {
	return f == Filter{}
}

// Match reports whether t satisfies every active predicate.
func (f Filter) Match(t Transaction) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if !f.StartDate.IsZero() && t.Date.Before(f.StartDate.Time) {
		return false
	}
	if !f.EndDate.IsZero() && t.Date.After(f.EndDate.Time) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Description), q) &&
			!strings.Contains(strings.ToLower(t.Category), q) {
			return false
		}
	}
	return true
}

// Filtered returns the transactions matching f in their original order. The
// input slice is never modified and the result never aliases it.
func Filtered(list []Transaction, f Filter) []Transaction {
	out := make([]Transaction, 0, len(list))
	for _, t := range list {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}
