// Package core holds the record domain: kinds, money, dates, windows and
// summaries. Everything here is pure and storage-agnostic.
package core

import (
	"strconv"
	"strings"
)

// ParseDecimalToCents parses a user-entered amount into cents. Both "12.34"
// and "12,34" are accepted, and a third decimal digit rounds half-up. Signs
// are rejected: amounts are always positive, with direction expressed by
// the record kind.
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" || s[0] == '+' || s[0] == '-' {
		return 0, ErrInvalidAmount
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	if strings.Contains(fracPart, ".") {
		return 0, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	if !allDigits(intPart) || !allDigits(fracPart) {
		return 0, ErrInvalidAmount
	}

	whole, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if whole > (1<<63-1)/100 {
		return 0, ErrInvalidAmount
	}

	var frac int64
	switch {
	case len(fracPart) >= 2:
		frac = int64(fracPart[0]-'0')*10 + int64(fracPart[1]-'0')
		if len(fracPart) > 2 && fracPart[2] >= '5' {
			frac++
		}
	case len(fracPart) == 1:
		frac = int64(fracPart[0]-'0') * 10
	}

	cents := whole*100 + frac
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Euros converts to a float for display only. Calculations stay in cents.
func (m Money) Euros() float64 {
	return float64(m.Cents) / 100.0
}

// Add returns the sum of two amounts. Cents arithmetic keeps summaries exact.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}
