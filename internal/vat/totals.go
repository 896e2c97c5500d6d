// Package vat aggregates invoice lines into subtotal, per-rate VAT breakdown
// and grand total.
package vat

import (
	"btw-buddy/internal/models"

	"github.com/shopspring/decimal"
)

// KnownRates are the breakdown keys every InvoiceTotals carries, even when zero.
var KnownRates = []string{"0", "9", "21"}

const currencyPlaces = 2

var hundred = decimal.NewFromInt(100)

// ComputeTotals sums lines into an InvoiceTotals. Accumulation is exact; every
// figure is rounded half away from zero to cents only once all lines are summed.
//
// A line whose rate is not one of KnownRates still counts towards Subtotal,
// TotalVAT and Total but is left out of VATBreakdown. BreakdownGap reports
// the VAT that went missing that way.
func ComputeTotals(lines []models.InvoiceLine) models.InvoiceTotals {
	subtotal := decimal.Zero
	totalVAT := decimal.Zero
	breakdown := make(map[string]models.VATBucket, len(KnownRates))
	for _, key := range KnownRates {
		breakdown[key] = models.VATBucket{Amount: decimal.Zero, VAT: decimal.Zero}
	}

	for _, line := range lines {
		lineTotal := line.Quantity.Mul(line.UnitPrice)
		vatAmount := lineTotal.Mul(line.VATRate).Div(hundred)

		subtotal = subtotal.Add(lineTotal)
		totalVAT = totalVAT.Add(vatAmount)

		key := RateKey(line.VATRate)
		if bucket, ok := breakdown[key]; ok {
			bucket.Amount = bucket.Amount.Add(lineTotal)
			bucket.VAT = bucket.VAT.Add(vatAmount)
			breakdown[key] = bucket
		}
	}

	// total comes from the unrounded sums
	total := subtotal.Add(totalVAT)

	for key, bucket := range breakdown {
		breakdown[key] = models.VATBucket{
			Amount: bucket.Amount.Round(currencyPlaces),
			VAT:    bucket.VAT.Round(currencyPlaces),
		}
	}

	return models.InvoiceTotals{
		Subtotal:     subtotal.Round(currencyPlaces),
		VATBreakdown: breakdown,
		TotalVAT:     totalVAT.Round(currencyPlaces),
		Total:        total.Round(currencyPlaces),
	}
}

// ComputeRawTotals sanitizes untyped lines and aggregates them.
func ComputeRawTotals(raw []RawLine) models.InvoiceTotals {
	return ComputeTotals(Sanitize(raw))
}

// RateKey renders a rate the way breakdown keys are written: 21, 9, 0, 5.5.
func RateKey(rate decimal.Decimal) string {
	return rate.String()
}

// IsKnownRate reports whether rate has its own breakdown bucket.
func IsKnownRate(rate decimal.Decimal) bool {
	key := RateKey(rate)
	for _, known := range KnownRates {
		if key == known {
			return true
		}
	}
	return false
}

// BreakdownGap returns TotalVAT minus the VAT of all breakdown buckets.
// It is non-zero only when some line used a rate outside KnownRates
// (give or take a cent of rounding).
func BreakdownGap(t models.InvoiceTotals) decimal.Decimal {
	bucketed := decimal.Zero
	for _, bucket := range t.VATBreakdown {
		bucketed = bucketed.Add(bucket.VAT)
	}
	return t.TotalVAT.Sub(bucketed)
}
