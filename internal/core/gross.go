// Package core provides the billing domain model.
//
// This file contains parsing of gross billing amounts typed by the user
// and the derived report total.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseGross converts user text into a gross billing amount.
//
// The text must be a finite decimal number. Surrounding whitespace is
// ignored; thousands separators and currency symbols are not accepted.
// Negative numbers parse but fail EntryFields.Validate.
//
// Examples:
//
//	ParseGross("100")     -> 100, nil
//	ParseGross("1250.50") -> 1250.5, nil
//	ParseGross("abc")     -> 0, ErrInvalidGross
func ParseGross(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidGross
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidGross
	}
	return d, nil
}

// Total sums the gross billing of rows. Rows without an amount count as zero.
func Total(rows []BillingEntry) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range rows {
		sum = sum.Add(r.GrossBilling)
	}
	return sum
}

// FormatAUD renders an amount the way the report shows currency, e.g. $1,234.50.
func FormatAUD(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := "$" + b.String() + "." + frac
	if neg {
		return "-" + out
	}
	return out
}
