package vat

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "0"},
		{"int", 3, "3"},
		{"float", 19.99, "19.99"},
		{"NaN", math.NaN(), "0"},
		{"infinity", math.Inf(1), "0"},
		{"decimal", decimal.RequireFromString("1.5"), "1.5"},
		{"json number", json.Number("2.75"), "2.75"},
		{"dot string", "12.50", "12.5"},
		{"comma string", "12,50", "12.5"},
		{"dutch thousands", "1.234,56", "1234.56"},
		{"english thousands", "1,234.56", "1234.56"},
		{"euro sign", "€ 7,25", "7.25"},
		{"blank", "   ", "0"},
		{"garbage", "twelve", "0"},
		{"bool", true, "0"},
		{"slice", []int{1}, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAmount(tt.in).String())
		})
	}
}

func TestComputeRawTotals_MalformedInputDegradesToZero(t *testing.T) {
	var raw []RawLine
	require.NoError(t, json.Unmarshal([]byte(`[
		{"description": "consulting", "quantity": 2, "unit_price": "100", "vat_rate": 21},
		{"description": "broken", "quantity": "a few", "unit_price": 50, "vat_rate": 21},
		{"description": "no rate", "quantity": 1, "unit_price": 10, "vat_rate": null}
	]`), &raw))

	totals := ComputeRawTotals(raw)

	assertCents(t, "210.00", totals.Subtotal)
	assertCents(t, "42.00", totals.TotalVAT)
	assertCents(t, "252.00", totals.Total)
	assertCents(t, "10.00", totals.VATBreakdown["0"].Amount)
}
