package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransactionIncome  = "income"
	TransactionExpense = "expense"
)

// Transaction is a ledger row. Amount excludes VAT.
type Transaction struct {
	ID          int             `json:"id"`
	Date        string          `json:"date"` // YYYY-MM-DD
	Description string          `json:"description"`
	Kind        string          `json:"kind"` // income or expense
	Amount      decimal.Decimal `json:"amount"`
	VATRate     decimal.Decimal `json:"vat_rate"`
	VATAmount   decimal.Decimal `json:"vat_amount"`
	ReceiptID   *int            `json:"receipt_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type CreateTransactionRequest struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Kind        string          `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	VATRate     decimal.Decimal `json:"vat_rate"`
}

// Receipt is an uploaded proof of purchase, optionally linked to a transaction
type Receipt struct {
	ID            int       `json:"id"`
	Filename      string    `json:"filename"`
	ContentType   string    `json:"content_type"`
	Size          int64     `json:"size"`
	TransactionID *int      `json:"transaction_id,omitempty"`
	UploadedAt    time.Time `json:"uploaded_at"`
}

type LinkReceiptRequest struct {
	TransactionID int `json:"transaction_id"`
}

const (
	VATReturnDraft     = "draft"
	VATReturnSubmitted = "submitted"
)

// VATReturn is a per-period declaration. Payable = OutputVAT - InputVAT.
type VATReturn struct {
	ID          int             `json:"id"`
	Period      string          `json:"period"` // e.g. 2024-Q3
	OutputVAT   decimal.Decimal `json:"output_vat"`
	InputVAT    decimal.Decimal `json:"input_vat"`
	Payable     decimal.Decimal `json:"payable"`
	Status      string          `json:"status"`
	SubmittedAt *time.Time      `json:"submitted_at,omitempty"`
}

type PrepareVATReturnRequest struct {
	Period string `json:"period"`
}
