package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceTotals_AmountsAreJSONNumbers(t *testing.T) {
	totals := InvoiceTotals{
		Subtotal: decimal.RequireFromString("250"),
		VATBreakdown: map[string]VATBucket{
			"21": {Amount: decimal.RequireFromString("200"), VAT: decimal.RequireFromString("42")},
			"9":  {Amount: decimal.RequireFromString("50"), VAT: decimal.RequireFromString("4.5")},
		},
		TotalVAT: decimal.RequireFromString("46.5"),
		Total:    decimal.RequireFromString("296.5"),
	}

	data, err := json.Marshal(totals)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"subtotal": 250,
		"vat_breakdown": {"21": {"amount": 200, "vat": 42}, "9": {"amount": 50, "vat": 4.5}},
		"total_vat": 46.5,
		"total": 296.5
	}`, string(data))

	var back InvoiceTotals
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Total.Equal(totals.Total))
}

func TestInvoiceLine_AcceptsQuotedAmounts(t *testing.T) {
	var line InvoiceLine
	require.NoError(t, json.Unmarshal([]byte(`{"quantity":"2","unit_price":"100.00","vat_rate":21}`), &line))
	assert.True(t, line.UnitPrice.Equal(decimal.NewFromInt(100)))

	data, err := json.Marshal(line)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"unit_price":100`)
}
