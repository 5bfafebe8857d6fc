// Package core provides the domain types and the pure aggregation logic of the
// financial dashboard.
//
// This file contains amount parsing and Indian-locale currency formatting.
package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Amounts leave the process as JSON numbers. Decoding still accepts both
// numbers and numeric strings.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// ParseAmount reads a stored or user-supplied amount. Anything that is not a
// number counts as zero, so a single malformed row never breaks a total.
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FormatINR renders an amount as rupees with two decimals and lakh/crore
// grouping, e.g. ₹1,00,000.00.
func FormatINR(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	s := d.StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")
	return sign + "₹" + groupIndian(intPart) + "." + frac
}

// FormatIndianNumber groups an amount the en-IN way with at most three
// fraction digits and no trailing zeros, e.g. 5,000 or 1,23,456.5.
func FormatIndianNumber(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	s := d.Round(3).String()
	intPart, frac, found := strings.Cut(s, ".")
	out := sign + groupIndian(intPart)
	if found {
		frac = strings.TrimRight(frac, "0")
		if frac != "" {
			out += "." + frac
		}
	}
	return out
}

// groupIndian inserts separators after the last three digits and then every two.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}

// FormatDate renders a day as "16 Oct 2026".
func FormatDate(t time.Time) string {
	return t.Format("02 Jan 2006")
}

// TransactionTypeClass maps a transaction type to the status class used by the UI.
func TransactionTypeClass(t TransactionType) string {
	switch t {
	case Income:
		return "text-success"
	case Expense:
		return "text-error"
	default:
		return "text-muted-foreground"
	}
}

// Percent returns part/whole*100, or zero when whole is not positive.
func Percent(part, whole decimal.Decimal) float64 {
	if !whole.IsPositive() {
		return 0
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).InexactFloat64()
}
