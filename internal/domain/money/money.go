// Package money validates currency codes and formats minor-unit amounts for display.
//
// Amounts are always int64 minor units (cents for USD, yen for JPY). Formatting never
// fails: an unrecognized code prints the raw code next to the raw number.
package money

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/damon-houk/fintrack/internal/domain/failure"
)

// DefaultScale is used for well-formed codes missing from the x/text table
// (VES, MRU, SLE and other recent ISO 4217 additions)
const DefaultScale int32 = 2

// Normalize upper-cases code and checks that it is three ASCII letters.
//
// Only the shape is checked: the ISO 4217 list changes faster than any bundled
// table, and the upstream is the authority on which codes exist.
func Normalize(code string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if len(c) != 3 {
		return "", failure.InvalidCurrency("normalize", code)
	}
	for i := 0; i < len(c); i++ {
		if c[i] < 'A' || c[i] > 'Z' {
			return "", failure.InvalidCurrency("normalize", code)
		}
	}
	return c, nil
}

// Scale returns the number of minor-unit digits for code (2 for USD, 0 for JPY)
func Scale(code string) (int32, error) {
	c, err := Normalize(code)
	if err != nil {
		return 0, err
	}
	unit, err := currency.ParseISO(c)
	if err != nil {
		return DefaultScale, nil
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale), nil
}

// Rescale moves amount from the minor units of from to those of to
// (100 USD cents are 1 USD, which is 1 JPY unit at a rate of 1)
func Rescale(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	src, err := Scale(from)
	if err != nil {
		return decimal.Zero, err
	}
	dst, err := Scale(to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Shift(dst - src), nil
}

// Format renders amount as "CODE 1234.56". Invalid codes fall back to the raw
// code and the raw minor-unit number.
func Format(amount int64, code string) string {
	scale, err := Scale(code)
	if err != nil {
		return strings.TrimSpace(code) + " " + strconv.FormatInt(amount, 10)
	}
	c, _ := Normalize(code)
	return c + " " + decimal.New(amount, -scale).StringFixed(scale)
}
