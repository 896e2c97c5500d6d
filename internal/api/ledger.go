package api

import (
	"bytes"
	"context"

	"btw-buddy/internal/models"

	"github.com/go-resty/resty/v2"
)

// Me returns the profile of the logged-in user
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := c.get(ctx, "/auth/me/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Setup2FA starts TOTP enrolment and returns the secret to scan
func (c *Client) Setup2FA(ctx context.Context) (*models.TOTPSetupResponse, error) {
	var out models.TOTPSetupResponse
	if err := c.post(ctx, "/auth/2fa/setup/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Enable2FA confirms enrolment with a code from the authenticator app
func (c *Client) Enable2FA(ctx context.Context, code string) error {
	return c.post(ctx, "/auth/2fa/enable/", jsonBody(models.TOTPEnableRequest{Code: code}), nil)
}

// ListTransactions returns ledger rows, optionally limited to a period like 2024-Q3
func (c *Client) ListTransactions(ctx context.Context, period string) ([]models.Transaction, error) {
	var out []models.Transaction
	build := func(r *resty.Request) {
		if period != "" {
			r.SetQueryParam("period", period)
		}
	}
	if err := c.get(ctx, "/transactions/", build, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateTransaction(ctx context.Context, req models.CreateTransactionRequest) (*models.Transaction, error) {
	var out models.Transaction
	if err := c.post(ctx, "/transactions/", jsonBody(req), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListReceipts(ctx context.Context) ([]models.Receipt, error) {
	var out []models.Receipt
	if err := c.get(ctx, "/receipts/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UploadReceipt sends a receipt file as multipart form data
func (c *Client) UploadReceipt(ctx context.Context, filename string, content []byte) (*models.Receipt, error) {
	var out models.Receipt
	build := func(r *resty.Request) {
		r.SetFileReader("file", filename, bytes.NewReader(content))
	}
	if err := c.post(ctx, "/receipts/", build, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DownloadReceipt fetches the stored receipt file
func (c *Client) DownloadReceipt(ctx context.Context, id int) ([]byte, error) {
	return c.download(ctx, "/receipts/{id}/file/", pathID(id))
}

// LinkReceipt attaches a receipt to a transaction
func (c *Client) LinkReceipt(ctx context.Context, receiptID, transactionID int) (*models.Receipt, error) {
	var out models.Receipt
	build := func(r *resty.Request) {
		pathID(receiptID)(r)
		jsonBody(models.LinkReceiptRequest{TransactionID: transactionID})(r)
	}
	if err := c.post(ctx, "/receipts/{id}/link/", build, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListInvoices(ctx context.Context) ([]models.Invoice, error) {
	var out []models.Invoice
	if err := c.get(ctx, "/invoices/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateInvoice stores an invoice; the server computes its totals
func (c *Client) CreateInvoice(ctx context.Context, req models.CreateInvoiceRequest) (*models.Invoice, error) {
	var out models.Invoice
	if err := c.post(ctx, "/invoices/", jsonBody(req), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// InvoicePDF renders an invoice on the server and returns the PDF bytes
func (c *Client) InvoicePDF(ctx context.Context, id int) ([]byte, error) {
	return c.download(ctx, "/invoices/{id}/pdf/", pathID(id))
}

func (c *Client) ListVATReturns(ctx context.Context) ([]models.VATReturn, error) {
	var out []models.VATReturn
	if err := c.get(ctx, "/vat-returns/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PrepareVATReturn creates (or recomputes) the draft return for a period
func (c *Client) PrepareVATReturn(ctx context.Context, period string) (*models.VATReturn, error) {
	var out models.VATReturn
	if err := c.post(ctx, "/vat-returns/", jsonBody(models.PrepareVATReturnRequest{Period: period}), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SubmitVATReturn(ctx context.Context, id int) (*models.VATReturn, error) {
	var out models.VATReturn
	if err := c.post(ctx, "/vat-returns/{id}/submit/", pathID(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
