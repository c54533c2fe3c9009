package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  Type = "INCOME"
	Expense Type = "EXPENSE"
)

// DateLayout is the wire and storage format of a transaction date.
const DateLayout = "2006-01-02"

type (
	// Type tells whether a transaction adds to or subtracts from the balance.
	Type string

	Date struct {
		time.Time
	}

	// Transaction is the only domain entity. Amount is a magnitude; the sign
	// comes from Type.
	Transaction struct {
		ID          string
		Date        Date
		Amount      decimal.Decimal
		Description string
		Type        Type
		Category    string
	}

	// Draft is an unvalidated create request as typed by the user.
	Draft struct {
		Date        string
		Amount      string
		Description string
		Type        Type
		Category    string
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrEmptyID          = errors.New("empty transaction id")
)

func (t Type) Valid() bool {
	return t == Income || t == Expense
}

func (t Type) String() string {
	return string(t)
}

// ParseType accepts the canonical names case-insensitively.
func ParseType(s string) (Type, error) {
	switch Type(strings.ToUpper(strings.TrimSpace(s))) {
	case Income:
		return Income, nil
	case Expense:
		return Expense, nil
	}
	return "", ErrInvalidType
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// DateOf truncates a moment to its calendar day in the moment's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

// Signed returns the amount with the sign implied by the type.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Normalize turns a draft into a transaction without an id. ok is false when
// the draft must not be submitted: amount missing, zero, negative or not a
// number, or a blank description. A missing or unparseable date means today
// and an unknown type means INCOME; callers wanting stricter input check
// those fields before building the draft.
func (d Draft) Normalize(today Date) (Transaction, bool) {
	amount, err := ParseAmount(d.Amount)
	if err != nil {
		return Transaction{}, false
	}
	desc := strings.TrimSpace(d.Description)
	if desc == "" {
		return Transaction{}, false
	}

	typ := d.Type
	if !typ.Valid() {
		typ = Income
	}

	date := today
	if parsed, err := ParseDate(d.Date); err == nil {
		date = parsed
	}

	category := strings.TrimSpace(d.Category)
	if category == "" {
		category = DefaultCategory(typ)
	}

	return Transaction{
		Date:        date,
		Amount:      amount,
		Description: desc,
		Type:        typ,
		Category:    category,
	}, true
}

// IndexOf returns the position of the transaction with the given id or -1.
func IndexOf(list []Transaction, id string) int {
	for i, t := range list {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Without returns a copy of list minus the transaction with the given id.
// The second result reports whether anything was removed.
func Without(list []Transaction, id string) ([]Transaction, bool) {
	i := IndexOf(list, id)
	if i < 0 {
		return list, false
	}
	out := make([]Transaction, 0, len(list)-1)
	out = append(out, list[:i]...)
	out = append(out, list[i+1:]...)
	return out, true
}

// Prepend returns a new slice with t in front of list.
func Prepend(list []Transaction, t Transaction) []Transaction {
	out := make([]Transaction, 0, len(list)+1)
	out = append(out, t)
	return append(out, list...)
}
