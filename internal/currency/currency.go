package currency

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	apperrors "github.com/ducminhle1904/portfolio-analytics/internal/errors"
)

// Table maps a country's base currency to target currencies. Rates are
// fixed; a missing country or target converts at 1.0.
type Table struct {
	rates map[string]map[string]float64
}

// DefaultTable returns the built-in sample rates
func DefaultTable() *Table {
	return NewTable(map[string]map[string]float64{
		"USA": {
			"USD": 1.0,
			"INR": 75.0,
			"EUR": 0.85,
		},
		"India": {
			"INR": 1.0,
			"USD": 0.013,
			"EUR": 0.011,
		},
	})
}

// NewTable copies rates into a new Table
func NewTable(rates map[string]map[string]float64) *Table {
	t := &Table{rates: make(map[string]map[string]float64, len(rates))}
	for country, targets := range rates {
		inner := make(map[string]float64, len(targets))
		for code, rate := range targets {
			inner[strings.ToUpper(code)] = rate
		}
		t.rates[country] = inner
	}
	return t
}

// Rate returns the multiplier from the country's base currency to target
func (t *Table) Rate(country, target string) float64 {
	if targets, ok := t.rates[country]; ok {
		if rate, ok := targets[strings.ToUpper(target)]; ok {
			return rate
		}
	}
	return 1.0
}

// Convert converts an amount in the country's base currency to target
func (t *Table) Convert(amount decimal.Decimal, country, target string) decimal.Decimal {
	return amount.Mul(decimal.NewFromFloat(t.Rate(country, target)))
}

// ConvertFloat is Convert for float amounts
func (t *Table) ConvertFloat(amount float64, country, target string) float64 {
	return amount * t.Rate(country, target)
}

// Validate checks that code is a known ISO 4217 currency
func Validate(code string) error {
	if money.GetCurrency(strings.ToUpper(code)) == nil {
		return apperrors.NewValidationError("currency", "validate", fmt.Sprintf("unknown currency %q", code))
	}
	return nil
}

// Format renders amount with the currency's symbol and minor-unit precision
func Format(amount decimal.Decimal, code string) string {
	code = strings.ToUpper(code)
	cur := money.GetCurrency(code)
	if cur == nil {
		return amount.StringFixed(2) + " " + code
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}
