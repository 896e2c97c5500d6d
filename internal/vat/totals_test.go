package vat

import (
	"math/rand"
	"testing"

	"btw-buddy/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(qty, price, rate string) models.InvoiceLine {
	return models.InvoiceLine{
		Quantity:  decimal.RequireFromString(qty),
		UnitPrice: decimal.RequireFromString(price),
		VATRate:   decimal.RequireFromString(rate),
	}
}

func assertCents(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Equal(t, want, got.StringFixed(2), msgAndArgs...)
}

// snapshot flattens totals into strings so results can be compared exactly.
func snapshot(t models.InvoiceTotals) map[string]string {
	out := map[string]string{
		"subtotal":  t.Subtotal.String(),
		"total_vat": t.TotalVAT.String(),
		"total":     t.Total.String(),
	}
	for key, bucket := range t.VATBreakdown {
		out["amount_"+key] = bucket.Amount.String()
		out["vat_"+key] = bucket.VAT.String()
	}
	return out
}

func TestComputeTotals_Empty(t *testing.T) {
	totals := ComputeTotals(nil)

	assertCents(t, "0.00", totals.Subtotal)
	assertCents(t, "0.00", totals.TotalVAT)
	assertCents(t, "0.00", totals.Total)
	require.Len(t, totals.VATBreakdown, 3)
	for _, key := range KnownRates {
		bucket, ok := totals.VATBreakdown[key]
		require.True(t, ok, "bucket %s missing", key)
		assertCents(t, "0.00", bucket.Amount)
		assertCents(t, "0.00", bucket.VAT)
	}
}

func TestComputeTotals_KnownRate(t *testing.T) {
	totals := ComputeTotals([]models.InvoiceLine{line("2", "100", "21")})

	assertCents(t, "200.00", totals.Subtotal)
	assertCents(t, "200.00", totals.VATBreakdown["21"].Amount)
	assertCents(t, "42.00", totals.VATBreakdown["21"].VAT)
	assertCents(t, "42.00", totals.TotalVAT)
	assertCents(t, "242.00", totals.Total)
	assertCents(t, "0.00", totals.VATBreakdown["9"].Amount)
	assertCents(t, "0.00", totals.VATBreakdown["0"].Amount)
}

func TestComputeTotals_MixedRates(t *testing.T) {
	totals := ComputeTotals([]models.InvoiceLine{
		line("3", "19.99", "21"),
		line("1", "12.50", "9"),
		line("4", "2.25", "0"),
		line("1", "-10", "21"), // credit line
	})

	// 59.97 - 10 + 12.50 + 9.00
	assertCents(t, "71.47", totals.Subtotal)
	assertCents(t, "49.97", totals.VATBreakdown["21"].Amount)
	assertCents(t, "10.49", totals.VATBreakdown["21"].VAT) // 10.4937
	assertCents(t, "12.50", totals.VATBreakdown["9"].Amount)
	assertCents(t, "1.13", totals.VATBreakdown["9"].VAT) // 1.125 rounds away from zero
	assertCents(t, "9.00", totals.VATBreakdown["0"].Amount)
	assertCents(t, "11.62", totals.TotalVAT) // 11.6187
	assertCents(t, "83.09", totals.Total)    // 83.0887
}

func TestComputeTotals_UnknownRateLeavesBreakdown(t *testing.T) {
	totals := ComputeTotals([]models.InvoiceLine{line("1", "100", "13")})

	assertCents(t, "100.00", totals.Subtotal)
	assertCents(t, "13.00", totals.TotalVAT)
	assertCents(t, "113.00", totals.Total)
	assert.Len(t, totals.VATBreakdown, 3)
	_, ok := totals.VATBreakdown["13"]
	assert.False(t, ok)

	bucketVAT := decimal.Zero
	for _, bucket := range totals.VATBreakdown {
		bucketVAT = bucketVAT.Add(bucket.VAT)
	}
	assertCents(t, "0.00", bucketVAT)
	assertCents(t, "13.00", BreakdownGap(totals))
}

func TestComputeTotals_RoundsOnlyAtTheEnd(t *testing.T) {
	// Three lines of 0.004 each: per-line rounding would give 0.00.
	lines := []models.InvoiceLine{
		line("1", "0.004", "0"),
		line("1", "0.004", "0"),
		line("1", "0.004", "0"),
	}
	assertCents(t, "0.01", ComputeTotals(lines).Subtotal)
}

func TestComputeTotals_HalfAwayFromZero(t *testing.T) {
	assertCents(t, "0.01", ComputeTotals([]models.InvoiceLine{line("1", "0.005", "0")}).Subtotal)
	assertCents(t, "-0.01", ComputeTotals([]models.InvoiceLine{line("1", "-0.005", "0")}).Subtotal)
}

func TestComputeTotals_RateKeyForms(t *testing.T) {
	totals := ComputeTotals([]models.InvoiceLine{line("1", "10", "21.00"), line("1", "10", "9.0")})

	assertCents(t, "10.00", totals.VATBreakdown["21"].Amount)
	assertCents(t, "10.00", totals.VATBreakdown["9"].Amount)
	assertCents(t, "0.00", BreakdownGap(totals))
}

func TestComputeTotals_Idempotent(t *testing.T) {
	lines := []models.InvoiceLine{
		line("3", "33.333", "21"),
		line("7", "1.115", "9"),
		line("1", "0.333", "13"),
	}

	first := ComputeTotals(lines)
	second := ComputeTotals(lines)
	assert.Equal(t, snapshot(first), snapshot(second))
}

func TestComputeTotals_TotalMatchesParts(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	rates := []string{"0", "9", "21", "13"}
	cent := decimal.RequireFromString("0.01")

	for i := 0; i < 500; i++ {
		var lines []models.InvoiceLine
		for n := rng.Intn(8); n >= 0; n-- {
			qty := decimal.NewFromInt(int64(rng.Intn(20)))
			price := decimal.New(int64(rng.Intn(200000)-50000), -3)
			rate := decimal.RequireFromString(rates[rng.Intn(len(rates))])
			lines = append(lines, models.InvoiceLine{Quantity: qty, UnitPrice: price, VATRate: rate})
		}

		totals := ComputeTotals(lines)
		diff := totals.Total.Sub(totals.Subtotal.Add(totals.TotalVAT)).Abs()
		require.True(t, diff.LessThanOrEqual(cent), "iteration %d: total %s vs %s + %s",
			i, totals.Total, totals.Subtotal, totals.TotalVAT)
	}
}

func TestIsKnownRate(t *testing.T) {
	assert.True(t, IsKnownRate(decimal.NewFromInt(21)))
	assert.True(t, IsKnownRate(decimal.RequireFromString("9.00")))
	assert.True(t, IsKnownRate(decimal.Zero))
	assert.False(t, IsKnownRate(decimal.NewFromInt(6)))
}
