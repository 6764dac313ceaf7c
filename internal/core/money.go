// Package core holds the ledger's domain values: entries, entry kinds and
// integer-cents money. Everything here is pure; persistence lives elsewhere.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Money is an amount in minor currency units (cents). Amounts are stored
// unsigned; an entry's kind carries the sign.
type Money struct {
	Cents int64
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Fixed2 renders cents as a fixed 2-decimal string, e.g. -1500 -> "-15.00".
// Pure integer math, so large balances render exactly.
func Fixed2(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// ParseDecimalToCents converts a decimal string like "12.34" or "12,34" to
// cents, rounding half-up on the third decimal digit. Only positive amounts
// are accepted.
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	if strings.Contains(fracPart, ".") {
		return 0, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	units, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// overflow guard before scaling to cents
	if units > (1<<63-1)/100 {
		return 0, ErrInvalidAmount
	}
	var frac int64
	if len(fracPart) > 0 {
		frac = int64(fracPart[0]-'0') * 10
	}
	if len(fracPart) > 1 {
		frac += int64(fracPart[1] - '0')
	}
	if len(fracPart) > 2 && fracPart[2] >= '5' {
		frac++
	}
	cents := units*100 + frac
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}
