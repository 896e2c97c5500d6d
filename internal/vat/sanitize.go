package vat

import (
	"encoding/json"
	"math"
	"strings"

	"btw-buddy/internal/models"

	"github.com/shopspring/decimal"
)

// RawLine is an invoice line as it arrives from a form or a JSON document,
// before any numeric parsing.
type RawLine struct {
	Description string `json:"description"`
	Quantity    any    `json:"quantity"`
	UnitPrice   any    `json:"unit_price"`
	VATRate     any    `json:"vat_rate"`
}

// Sanitize converts raw lines into typed lines. Values that cannot be read as
// a number become zero; Sanitize never fails.
func Sanitize(raw []RawLine) []models.InvoiceLine {
	lines := make([]models.InvoiceLine, 0, len(raw))
	for _, r := range raw {
		lines = append(lines, models.InvoiceLine{
			Description: r.Description,
			Quantity:    ParseAmount(r.Quantity),
			UnitPrice:   ParseAmount(r.UnitPrice),
			VATRate:     ParseAmount(r.VATRate),
		})
	}
	return lines
}

// ParseAmount reads v as a decimal or returns zero. Strings may use either
// "." or "," as decimal separator ("12.50", "12,50", "1.234,56").
func ParseAmount(v any) decimal.Decimal {
	switch x := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return x
	case *decimal.Decimal:
		if x == nil {
			return decimal.Zero
		}
		return *x
	case int:
		return decimal.NewFromInt(int64(x))
	case int32:
		return decimal.NewFromInt32(x)
	case int64:
		return decimal.NewFromInt(x)
	case float32:
		return fromFloat(float64(x))
	case float64:
		return fromFloat(x)
	case json.Number:
		return parseString(x.String())
	case string:
		return parseString(x)
	default:
		return decimal.Zero
	}
}

func fromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

func parseString(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "€")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}

	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")
	switch {
	case comma > dot:
		// Dutch notation: "." groups thousands, "," separates decimals
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
