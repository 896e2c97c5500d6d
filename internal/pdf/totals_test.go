package pdf

import (
	"bytes"
	"testing"

	"btw-buddy/internal/models"
	"btw-buddy/internal/vat"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	lines := []models.InvoiceLine{
		{Description: "Consultancy", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(100), VATRate: decimal.NewFromInt(21)},
		{Description: "Boek", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("19.95"), VATRate: decimal.NewFromInt(9)},
		{Description: "Cursus", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50), VATRate: decimal.NewFromInt(13)},
	}
	out, err := Render(Document{Lines: lines, Totals: vat.ComputeTotals(lines)})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestFromInvoice(t *testing.T) {
	inv := &models.Invoice{InvoiceNumber: "2024-0007", CustomerName: "Bakkerij Jansen", IssueDate: "2024-07-15"}
	doc := FromInvoice(inv)
	assert.Equal(t, "Invoice 2024-0007", doc.Title)
	assert.Equal(t, 15, doc.IssueDate.Day())

	out, err := Render(doc)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
