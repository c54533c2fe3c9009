package core

import "sort"

// Category vocabularies offered when recording a transaction. Stored
// categories are not checked against them.
var (
	IncomeCategories = []string{
		"Visite Specialistiche",
		"Interventi Chirurgici",
		"Diagnostica",
		"Consulenze",
		"Assicurazioni",
		"Altro",
	}

	ExpenseCategories = []string{
		"Affitto e Struttura",
		"Materiale Medico",
		"Stipendi Staff",
		"Utenze",
		"Marketing",
		"Manutenzione Apparati",
		"Altro",
	}

	allCategories = dedupeSorted(IncomeCategories, ExpenseCategories)
)

// CategoriesFor returns the vocabulary of the given type.
func CategoriesFor(t Type) []string {
	if t == Expense {
		return append([]string(nil), ExpenseCategories...)
	}
	return append([]string(nil), IncomeCategories...)
}

// DefaultCategory is the first entry of the type's vocabulary.
func DefaultCategory(t Type) string {
	if t == Expense {
		return ExpenseCategories[0]
	}
	return IncomeCategories[0]
}

// AllCategories returns the union of both vocabularies, deduplicated and
// sorted. Comparison is case-sensitive.
func AllCategories() []string {
	return append([]string(nil), allCategories...)
}

// IsKnownCategory reports whether c belongs to the vocabulary of t.
func IsKnownCategory(t Type, c string) bool {
	for _, v := range CategoriesFor(t) {
		if v == c {
			return true
		}
	}
	return false
}

func dedupeSorted(lists ...[]string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, list := range lists {
		for _, v := range list {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
