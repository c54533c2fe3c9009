package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPayload marks data from outside the process (network response,
// cache file, request body) that is not a well-formed transaction list or
// record.
var ErrInvalidPayload = errors.New("invalid transaction payload")

type wireTransaction struct {
	ID          string      `json:"id,omitempty"`
	Date        string      `json:"date"`
	Amount      json.Number `json:"amount"`
	Description string      `json:"description"`
	Type        Type        `json:"type"`
	Category    string      `json:"category"`
}

// MarshalJSON writes the amount as a JSON number and the date as YYYY-MM-DD.
// An empty id is omitted, which is the shape of a create request body.
func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireTransaction{
		ID:          t.ID,
		Date:        t.Date.String(),
		Amount:      json.Number(t.Amount.String()),
		Description: t.Description,
		Type:        t.Type,
		Category:    t.Category,
	})
}

// UnmarshalJSON decodes a single record with the same tolerance rules as
// ParseTransactions, except that the id may be absent.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	parsed, err := decodeRecord(data, false)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTransactions validates a JSON document at a trust boundary. The
// document must be an array of objects, each carrying an id, a known type
// and a YYYY-MM-DD date; ids must be unique. Amounts that are missing or not
// numeric are coerced to zero, descriptions and categories to strings.
// Any structural problem yields ErrInvalidPayload and no partial result.
func ParseTransactions(data []byte) ([]Transaction, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil, fmt.Errorf("%w: not a JSON array", ErrInvalidPayload)
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	out := make([]Transaction, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))
	for i, raw := range raws {
		t, err := decodeRecord(raw, true)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidPayload, t.ID)
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}

// EncodeTransactions is the inverse of ParseTransactions. A nil list encodes
// as an empty array.
func EncodeTransactions(list []Transaction) ([]byte, error) {
	if list == nil {
		list = []Transaction{}
	}
	return json.Marshal(list)
}

func decodeRecord(data []byte, requireID bool) (Transaction, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return Transaction{}, fmt.Errorf("%w: not a JSON object", ErrInvalidPayload)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Transaction{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	t := Transaction{
		ID:          coerceString(fields["id"]),
		Amount:      CoerceAmount(fields["amount"]),
		Description: coerceString(fields["description"]),
		Category:    coerceString(fields["category"]),
	}
	if requireID && strings.TrimSpace(t.ID) == "" {
		return Transaction{}, fmt.Errorf("%w: %v", ErrInvalidPayload, ErrEmptyID)
	}

	typ, err := ParseType(coerceString(fields["type"]))
	if err != nil {
		return Transaction{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	t.Type = typ

	date, err := ParseDate(coerceString(fields["date"]))
	if err != nil {
		return Transaction{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	t.Date = date

	return t, nil
}

// coerceString renders strings as-is, numbers and booleans in their JSON
// spelling, and everything else (null, objects, arrays, absent) as "".
func coerceString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case '{', '[', 'n':
		return ""
	}
	return string(raw)
}

// ParseCreateRequest decodes the body of a create call. Unlike stored
// records, the id is ignored, a missing date means today, a missing type
// means INCOME and a blank category takes the type's default. The amount
// must be positive and the description non-blank.
func ParseCreateRequest(data []byte, today Date) (Transaction, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return Transaction{}, fmt.Errorf("%w: not a JSON object", ErrInvalidPayload)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Transaction{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	t := Transaction{
		Amount:      CoerceAmount(fields["amount"]),
		Description: strings.TrimSpace(coerceString(fields["description"])),
		Category:    strings.TrimSpace(coerceString(fields["category"])),
		Date:        today,
		Type:        Income,
	}
	if !t.Amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}
	if t.Description == "" {
		return Transaction{}, ErrEmptyDescription
	}
	if raw := strings.TrimSpace(coerceString(fields["type"])); raw != "" {
		typ, err := ParseType(raw)
		if err != nil {
			return Transaction{}, err
		}
		t.Type = typ
	}
	if raw := strings.TrimSpace(coerceString(fields["date"])); raw != "" {
		date, err := ParseDate(raw)
		if err != nil {
			return Transaction{}, err
		}
		t.Date = date
	}
	if t.Category == "" {
		t.Category = DefaultCategory(t.Type)
	}
	return t, nil
}
