// Package pdf renders invoice totals for offline review.
package pdf

import (
	"bytes"
	"fmt"
	"time"

	"btw-buddy/internal/format"
	"btw-buddy/internal/models"
	"btw-buddy/internal/vat"

	"github.com/jung-kurt/gofpdf/v2"
	"github.com/shopspring/decimal"
)

// Document is what gets printed: an optional header plus the lines and their totals
type Document struct {
	Title        string
	CustomerName string
	Reference    string
	IssueDate    time.Time
	Lines        []models.InvoiceLine
	Totals       models.InvoiceTotals
	GeneratedAt  time.Time
}

// FromInvoice builds a Document from a stored invoice
func FromInvoice(inv *models.Invoice) Document {
	doc := Document{
		Title:        "Invoice " + inv.InvoiceNumber,
		CustomerName: inv.CustomerName,
		Reference:    inv.InvoiceNumber,
		Lines:        inv.Lines,
		Totals:       inv.Totals,
	}
	if t, err := time.Parse("2006-01-02", inv.IssueDate); err == nil {
		doc.IssueDate = t
	}
	return doc
}

// Render writes the document as an A4 PDF
func Render(doc Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	title := doc.Title
	if title == "" {
		title = "VAT totals"
	}
	generated := doc.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, tr(title), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Generated: %s", format.Date(generated)), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	if doc.CustomerName != "" || doc.Reference != "" {
		pdf.SetFillColor(240, 240, 240)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(190, 8, "Details", "1", 1, "L", true, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(95, 7, tr("Customer: "+doc.CustomerName), "LB", 0, "L", false, 0, "")
		pdf.CellFormat(95, 7, "Date: "+format.Date(doc.IssueDate), "RB", 1, "L", false, 0, "")
		pdf.Ln(5)
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(80, 7, "Description", "1", 0, "C", true, 0, "")
	pdf.CellFormat(20, 7, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Unit price", "1", 0, "C", true, 0, "")
	pdf.CellFormat(20, 7, "VAT", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 7, "Amount", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, l := range doc.Lines {
		desc := l.Description
		if len(desc) > 45 {
			desc = desc[:42] + "..."
		}
		pdf.CellFormat(80, 6, tr(desc), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, l.Quantity.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, tr(format.Currency(l.UnitPrice)), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 6, format.Percent(l.VATRate), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, tr(format.Currency(l.Quantity.Mul(l.UnitPrice))), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 12)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(190, 8, "VAT breakdown", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 10)
	for _, rate := range vat.KnownRates {
		bucket := doc.Totals.VATBreakdown[rate]
		pdf.CellFormat(63, 6, rate+"%", "1", 0, "C", false, 0, "")
		pdf.CellFormat(63, 6, tr(format.Currency(bucket.Amount)), "1", 0, "R", false, 0, "")
		pdf.CellFormat(64, 6, tr(format.Currency(bucket.VAT)), "1", 1, "R", false, 0, "")
	}
	if gap := vat.BreakdownGap(doc.Totals); !gap.IsZero() {
		pdf.SetFont("Arial", "I", 9)
		pdf.CellFormat(190, 6, tr("VAT at other rates: "+format.Currency(gap)), "1", 1, "L", false, 0, "")
	}
	pdf.Ln(5)

	pdf.SetFont("Arial", "", 11)
	row := func(label string, amount decimal.Decimal) {
		pdf.CellFormat(126, 7, label, "1", 0, "R", false, 0, "")
		pdf.CellFormat(64, 7, tr(format.Currency(amount)), "1", 1, "R", false, 0, "")
	}
	row("Subtotal", doc.Totals.Subtotal)
	row("Total VAT", doc.Totals.TotalVAT)

	pdf.SetFont("Arial", "B", 12)
	pdf.SetFillColor(200, 255, 200)
	pdf.CellFormat(126, 9, "Total", "1", 0, "R", true, 0, "")
	pdf.CellFormat(64, 9, tr(format.Currency(doc.Totals.Total)), "1", 1, "R", true, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
