package currency

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ducminhle1904/portfolio-analytics/internal/errors"
)

func TestRate(t *testing.T) {
	table := DefaultTable()

	tests := []struct {
		country, target string
		want            float64
	}{
		{"USA", "USD", 1.0},
		{"USA", "INR", 75.0},
		{"USA", "eur", 0.85},
		{"India", "USD", 0.013},
		{"India", "GBP", 1.0},
		{"Japan", "USD", 1.0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, table.Rate(tt.country, tt.target), "%s->%s", tt.country, tt.target)
	}
}

func TestConvert(t *testing.T) {
	table := DefaultTable()

	got := table.Convert(decimal.NewFromInt(200), "USA", "INR")
	assert.True(t, got.Equal(decimal.NewFromInt(15000)), got.String())
	assert.InDelta(t, 170.0, table.ConvertFloat(200, "USA", "EUR"), 1e-9)
}

func TestNewTableCopiesInput(t *testing.T) {
	rates := map[string]map[string]float64{"UK": {"gbp": 1, "USD": 1.25}}
	table := NewTable(rates)
	rates["UK"]["USD"] = 9

	assert.Equal(t, 1.25, table.Rate("UK", "USD"))
	assert.Equal(t, 1.0, table.Rate("UK", "GBP"))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("usd"))
	assert.NoError(t, Validate("INR"))

	err := Validate("XYZ1")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "$1,234.50", Format(decimal.RequireFromString("1234.5"), "USD"))
	assert.Equal(t, "12.00 ZZZ", Format(decimal.NewFromInt(12), "zzz"))
}
