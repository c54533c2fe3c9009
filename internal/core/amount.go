// Package core provides amount parsing and coercion utilities.
//
// This file contains the functions that turn user input and loosely typed
// JSON values into decimal amounts.
package core

import (
	"encoding/json"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Amounts outside this window are treated as malformed. Decimals with huge
// exponents expand to huge integers when printed or added, so they must not
// get past the parsers.
const (
	maxAmountIntDigits = 15
	minAmountExponent  = -12
)

// inRange reports whether d has at most maxAmountIntDigits integer digits and
// no precision finer than 10^minAmountExponent.
func inRange(d decimal.Decimal) bool {
	exp := int64(d.Exponent())
	if exp < minAmountExponent {
		return false
	}
	return int64(d.NumDigits())+exp <= maxAmountIntDigits
}

// ParseAmount converts a decimal string typed by a user into a positive amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs,
// exponents, zero and anything that is not a plain decimal are rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("0")      -> 0, ErrInvalidAmount
//	ParseAmount("-1")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, p := range parts {
		for _, r := range p {
			if !unicode.IsDigit(r) {
				return decimal.Zero, ErrInvalidAmount
			}
		}
	}
	intPart, fracPart := parts[0], ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" && fracPart == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	s = intPart
	if fracPart != "" {
		s += "." + fracPart
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() || !inRange(d) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// CoerceAmount reads an amount from an arbitrary JSON value. Numbers and
// numeric strings are accepted; everything else, including negative values,
// becomes zero so that aggregates never turn non-numeric. Values with more
// than 15 integer digits or finer than 12 decimal places also become zero.
func CoerceAmount(raw json.RawMessage) decimal.Decimal {
	var v any
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if len(raw) == 0 || dec.Decode(&v) != nil {
		return decimal.Zero
	}

	var d decimal.Decimal
	var err error
	switch x := v.(type) {
	case json.Number:
		d, err = decimal.NewFromString(x.String())
	case string:
		d, err = decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(x), ",", "."))
	default:
		return decimal.Zero
	}
	if err != nil || d.IsNegative() || !inRange(d) {
		return decimal.Zero
	}
	return d
}
