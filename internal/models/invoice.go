package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Amounts travel as JSON numbers on the wire, in both directions.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// InvoiceLine is a single billable line. UnitPrice may be negative for credit lines.
type InvoiceLine struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VATRate     decimal.Decimal `json:"vat_rate"` // percentage, e.g. 21
}

// VATBucket is the per-rate slice of an invoice
type VATBucket struct {
	Amount decimal.Decimal `json:"amount"`
	VAT    decimal.Decimal `json:"vat"`
}

// InvoiceTotals is an immutable snapshot derived from a set of lines
type InvoiceTotals struct {
	Subtotal     decimal.Decimal      `json:"subtotal"`
	VATBreakdown map[string]VATBucket `json:"vat_breakdown"`
	TotalVAT     decimal.Decimal      `json:"total_vat"`
	Total        decimal.Decimal      `json:"total"`
}

// Invoice represents a generated invoice
type Invoice struct {
	ID            int           `json:"id"`
	InvoiceNumber string        `json:"invoice_number"`
	CustomerName  string        `json:"customer_name"`
	IssueDate     string        `json:"issue_date"`
	Lines         []InvoiceLine `json:"lines"`
	Totals        InvoiceTotals `json:"totals"`
	CreatedAt     time.Time     `json:"created_at"`
}

// CreateInvoiceRequest represents the request to create an invoice
type CreateInvoiceRequest struct {
	CustomerName string        `json:"customer_name"`
	IssueDate    string        `json:"issue_date"`
	Lines        []InvoiceLine `json:"lines"`
}
