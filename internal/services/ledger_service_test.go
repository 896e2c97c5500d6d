package services

import (
	"context"
	"errors"
	"testing"

	"btw-buddy/internal/models"
	"btw-buddy/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func addTx(t *testing.T, s *LedgerService, userID int, date, kind, amount, rate string) *models.Transaction {
	t.Helper()
	tx, err := s.CreateTransaction(context.Background(), userID, &models.CreateTransactionRequest{
		Date:        date,
		Description: kind + " " + date,
		Kind:        kind,
		Amount:      dec(amount),
		VATRate:     dec(rate),
	})
	require.NoError(t, err)
	return tx
}

func TestCreateTransaction(t *testing.T) {
	s := NewLedgerService(repositories.NewLedgerRepository(), nil)

	tx := addTx(t, s, 1, "2024-07-15", models.TransactionIncome, "199.99", "21")
	assert.True(t, dec("42").Equal(tx.VATAmount), tx.VATAmount.String())
	assert.NotZero(t, tx.ID)

	_, err := s.CreateTransaction(context.Background(), 1, &models.CreateTransactionRequest{
		Date:    "15-07-2024",
		Kind:    "gift",
		Amount:  dec("-1"),
		VATRate: dec("121"),
	})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	for _, field := range []string{"date", "description", "kind", "amount", "vat_rate"} {
		assert.Contains(t, verr.Fields, field)
	}
}

func TestListTransactions_Period(t *testing.T) {
	s := NewLedgerService(repositories.NewLedgerRepository(), nil)
	ctx := context.Background()
	addTx(t, s, 1, "2024-09-30", models.TransactionIncome, "100", "21")
	addTx(t, s, 1, "2024-07-01", models.TransactionExpense, "50", "9")
	addTx(t, s, 1, "2024-10-01", models.TransactionIncome, "10", "21")
	addTx(t, s, 2, "2024-07-02", models.TransactionIncome, "10", "21")

	q3, err := s.ListTransactions(ctx, 1, "2024-Q3")
	require.NoError(t, err)
	require.Len(t, q3, 2)
	assert.Equal(t, "2024-07-01", q3[0].Date)

	july, err := s.ListTransactions(ctx, 1, "2024-07")
	require.NoError(t, err)
	assert.Len(t, july, 1)

	year, err := s.ListTransactions(ctx, 1, "2024")
	require.NoError(t, err)
	assert.Len(t, year, 3)

	_, err = s.ListTransactions(ctx, 1, "Q3")
	assert.Error(t, err)
}

func TestVATReturn_PrepareAndSubmit(t *testing.T) {
	s := NewLedgerService(repositories.NewLedgerRepository(), nil)
	ctx := context.Background()
	addTx(t, s, 1, "2024-07-10", models.TransactionIncome, "1000", "21")
	addTx(t, s, 1, "2024-08-10", models.TransactionExpense, "200", "21")
	addTx(t, s, 1, "2024-08-11", models.TransactionExpense, "100", "9")

	ret, err := s.PrepareVATReturn(ctx, 1, "2024-Q3")
	require.NoError(t, err)
	assert.True(t, dec("210").Equal(ret.OutputVAT))
	assert.True(t, dec("51").Equal(ret.InputVAT))
	assert.True(t, dec("159").Equal(ret.Payable))
	assert.Equal(t, models.VATReturnDraft, ret.Status)

	// Preparing again refreshes the same draft
	addTx(t, s, 1, "2024-09-01", models.TransactionIncome, "100", "21")
	again, err := s.PrepareVATReturn(ctx, 1, "2024-Q3")
	require.NoError(t, err)
	assert.Equal(t, ret.ID, again.ID)
	assert.True(t, dec("180").Equal(again.Payable))
	assert.Len(t, s.ListVATReturns(ctx, 1), 1)

	submitted, err := s.SubmitVATReturn(ctx, 1, again.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VATReturnSubmitted, submitted.Status)
	assert.NotNil(t, submitted.SubmittedAt)

	_, err = s.SubmitVATReturn(ctx, 1, again.ID)
	assert.ErrorIs(t, err, ErrReturnSubmitted)
	_, err = s.PrepareVATReturn(ctx, 1, "2024-Q3")
	assert.ErrorIs(t, err, ErrReturnSubmitted)

	_, err = s.SubmitVATReturn(ctx, 2, again.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestCreateInvoice(t *testing.T) {
	s := NewLedgerService(repositories.NewLedgerRepository(), nil)
	ctx := context.Background()

	inv, err := s.CreateInvoice(ctx, 1, &models.CreateInvoiceRequest{
		CustomerName: "Bakkerij Jansen",
		IssueDate:    "2024-03-05",
		Lines: []models.InvoiceLine{
			{Description: "Advies", Quantity: dec("2"), UnitPrice: dec("100"), VATRate: dec("21")},
			{Description: "Boek", Quantity: dec("1"), UnitPrice: dec("50"), VATRate: dec("9")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-0001", inv.InvoiceNumber)
	assert.True(t, dec("250").Equal(inv.Totals.Subtotal))
	assert.True(t, dec("46.5").Equal(inv.Totals.TotalVAT))

	second, err := s.CreateInvoice(ctx, 1, &models.CreateInvoiceRequest{
		CustomerName: "Bakkerij Jansen",
		IssueDate:    "2024-03-06",
		Lines:        inv.Lines,
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-0002", second.InvoiceNumber)
	assert.Len(t, s.ListInvoices(ctx, 1), 2)

	_, err = s.CreateInvoice(ctx, 1, &models.CreateInvoiceRequest{IssueDate: "05-03-2024"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "customer_name")
	assert.Contains(t, verr.Fields, "lines")
	assert.Contains(t, verr.Fields, "issue_date")
}

func TestReceipts(t *testing.T) {
	s := NewLedgerService(repositories.NewLedgerRepository(), nil)
	ctx := context.Background()
	tx := addTx(t, s, 1, "2024-07-10", models.TransactionExpense, "20", "21")

	rc, err := s.UploadReceipt(ctx, 1, "bon.pdf", "", []byte("%PDF-1.4 receipt"))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", rc.ContentType)
	assert.EqualValues(t, 16, rc.Size)

	linked, err := s.LinkReceipt(ctx, 1, rc.ID, tx.ID)
	require.NoError(t, err)
	require.NotNil(t, linked.TransactionID)
	assert.Equal(t, tx.ID, *linked.TransactionID)

	_, content, err := s.ReceiptFile(ctx, 1, rc.ID)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 receipt", string(content))

	_, err = s.LinkReceipt(ctx, 2, rc.ID, tx.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	_, err = s.UploadReceipt(ctx, 1, "", "", nil)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Fields["file"], 2)
}
