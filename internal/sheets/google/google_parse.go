package google

import (
	"fmt"
	"strings"

	"clinica/internal/core"
)

// Column order: ID, Data, Tipo, Categoria, Descrizione, Importo.
func toRow(t core.Transaction) []any {
	return []any{
		t.ID,
		t.Date.String(),
		string(t.Type),
		t.Category,
		t.Description,
		t.Amount.InexactFloat64(),
	}
}

// parseRows converts a values matrix into transactions. Rows without an id,
// type or date (the header among them) are skipped; amounts use the same
// tolerant parsing as user input, falling back to zero.
func parseRows(values [][]any) []core.Transaction {
	var out []core.Transaction
	for _, raw := range values {
		cols := toStrings(raw)
		id := safeGet(cols, 0)
		if id == "" {
			continue
		}
		date, err := core.ParseDate(safeGet(cols, 1))
		if err != nil {
			continue
		}
		typ, err := core.ParseType(safeGet(cols, 2))
		if err != nil {
			continue
		}
		t := core.Transaction{
			ID:          id,
			Date:        date,
			Type:        typ,
			Category:    safeGet(cols, 3),
			Description: safeGet(cols, 4),
		}
		if amount, err := core.ParseAmount(safeGet(cols, 5)); err == nil {
			t.Amount = amount
		}
		out = append(out, t)
	}
	return out
}

// findRow returns the zero-based row index whose first cell equals id, or -1.
func findRow(values [][]any, id string) int {
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i
		}
	}
	return -1
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
