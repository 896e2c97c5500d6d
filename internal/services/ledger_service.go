package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"btw-buddy/internal/archive"
	"btw-buddy/internal/format"
	"btw-buddy/internal/models"
	"btw-buddy/internal/repositories"
	"btw-buddy/internal/timeutil"
	"btw-buddy/internal/vat"

	"github.com/shopspring/decimal"
)

// MaxReceiptSize caps uploaded receipt files at 10 MB
const MaxReceiptSize = 10 << 20

var ErrReturnSubmitted = errors.New("this VAT return has already been submitted")

// ValidationError carries per-field messages for a 400 response
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "invalid " + strings.Join(keys, ", ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

var hundred = decimal.NewFromInt(100)

// LedgerService manages transactions, receipts, invoices and VAT returns
type LedgerService struct {
	Repo    *repositories.LedgerRepository
	Archive *archive.Archive // nil when no bucket is configured
	now     func() time.Time
}

func NewLedgerService(repo *repositories.LedgerRepository, arch *archive.Archive) *LedgerService {
	return &LedgerService{Repo: repo, Archive: arch, now: time.Now}
}

func (s *LedgerService) CreateTransaction(ctx context.Context, userID int, req *models.CreateTransactionRequest) (*models.Transaction, error) {
	verr := &ValidationError{}
	if _, err := timeutil.ParseLocal(timeutil.DateLayout, req.Date); err != nil {
		verr.add("date", "Use the format YYYY-MM-DD.")
	}
	if strings.TrimSpace(req.Description) == "" {
		verr.add("description", "This field is required.")
	}
	if req.Kind != models.TransactionIncome && req.Kind != models.TransactionExpense {
		verr.add("kind", "Choose income or expense.")
	}
	if !req.Amount.IsPositive() {
		verr.add("amount", "Enter an amount greater than zero.")
	}
	if req.VATRate.IsNegative() || req.VATRate.GreaterThan(hundred) {
		verr.add("vat_rate", "Enter a rate between 0 and 100.")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	tx := &models.Transaction{
		Date:        req.Date,
		Description: strings.TrimSpace(req.Description),
		Kind:        req.Kind,
		Amount:      req.Amount,
		VATRate:     req.VATRate,
		VATAmount:   req.Amount.Mul(req.VATRate).Div(hundred).Round(2),
		CreatedAt:   s.now(),
	}
	s.Repo.CreateTransaction(ctx, userID, tx)
	return tx, nil
}

// ListTransactions returns the user's transactions, limited to one VAT
// period when period is a label such as 2024-Q3, 2024-07 or 2024.
func (s *LedgerService) ListTransactions(ctx context.Context, userID int, period string) ([]models.Transaction, error) {
	all := s.Repo.ListTransactions(ctx, userID)
	if period == "" {
		return all, nil
	}

	frequency, ok := format.PeriodFrequency(period)
	if !ok {
		return nil, &ValidationError{Fields: map[string][]string{"period": {"Use 2024-Q3, 2024-07 or 2024."}}}
	}

	out := make([]models.Transaction, 0, len(all))
	for _, tx := range all {
		date, err := timeutil.ParseLocal(timeutil.DateLayout, tx.Date)
		if err != nil {
			continue
		}
		if format.Period(date, frequency) == period {
			out = append(out, tx)
		}
	}
	return out, nil
}

// UploadReceipt stores a receipt and mirrors it to the archive bucket when
// one is configured. Archive failures are logged; the upload still succeeds.
func (s *LedgerService) UploadReceipt(ctx context.Context, userID int, filename, contentType string, content []byte) (*models.Receipt, error) {
	verr := &ValidationError{}
	if strings.TrimSpace(filename) == "" {
		verr.add("file", "No file was submitted.")
	}
	if len(content) == 0 {
		verr.add("file", "The submitted file is empty.")
	}
	if len(content) > MaxReceiptSize {
		verr.add("file", "Receipts may be at most 10 MB.")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(content)
	}

	rc := &repositories.StoredReceipt{
		Receipt: models.Receipt{
			Filename:    filename,
			ContentType: contentType,
			Size:        int64(len(content)),
			UploadedAt:  s.now(),
		},
		Content: content,
	}
	s.Repo.CreateReceipt(ctx, userID, rc)

	if s.Archive != nil {
		key := s.Archive.ReceiptKey(rc.ID, filename, rc.UploadedAt)
		if err := s.Archive.Put(ctx, key, content, contentType); err != nil {
			log.Printf("[Archive] Failed to mirror receipt %d: %v", rc.ID, err)
		} else {
			s.Repo.SetReceiptArchiveKey(ctx, userID, rc.ID, key)
			log.Printf("[Archive] Receipt %d stored as %s", rc.ID, key)
		}
	}

	out := rc.Receipt
	return &out, nil
}

func (s *LedgerService) ListReceipts(ctx context.Context, userID int) []models.Receipt {
	return s.Repo.ListReceipts(ctx, userID)
}

// ReceiptFile returns a receipt and its content, reading from the archive
// when the local copy is gone.
func (s *LedgerService) ReceiptFile(ctx context.Context, userID, receiptID int) (*models.Receipt, []byte, error) {
	rc, err := s.Repo.GetReceipt(ctx, userID, receiptID)
	if err != nil {
		return nil, nil, err
	}
	if len(rc.Content) == 0 && rc.ArchiveKey != "" && s.Archive != nil {
		content, err := s.Archive.Get(ctx, rc.ArchiveKey)
		if err != nil {
			return nil, nil, err
		}
		rc.Content = content
	}
	return &rc.Receipt, rc.Content, nil
}

func (s *LedgerService) LinkReceipt(ctx context.Context, userID, receiptID, transactionID int) (*models.Receipt, error) {
	return s.Repo.LinkReceipt(ctx, userID, receiptID, transactionID)
}

// CreateInvoice computes the totals for the lines and assigns the next
// sequential invoice number, prefixed with the issue year: 2024-0007.
func (s *LedgerService) CreateInvoice(ctx context.Context, userID int, req *models.CreateInvoiceRequest) (*models.Invoice, error) {
	verr := &ValidationError{}
	if strings.TrimSpace(req.CustomerName) == "" {
		verr.add("customer_name", "This field is required.")
	}
	if len(req.Lines) == 0 {
		verr.add("lines", "Add at least one line.")
	}

	issued := timeutil.ToLocal(s.now())
	if req.IssueDate != "" {
		d, err := timeutil.ParseLocal(timeutil.DateLayout, req.IssueDate)
		if err != nil {
			verr.add("issue_date", "Use the format YYYY-MM-DD.")
		}
		issued = d
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	inv := &models.Invoice{
		InvoiceNumber: fmt.Sprintf("%d-%04d", issued.Year(), s.Repo.CountInvoices(ctx, userID)+1),
		CustomerName:  strings.TrimSpace(req.CustomerName),
		IssueDate:     issued.Format(timeutil.DateLayout),
		Lines:         req.Lines,
		Totals:        vat.ComputeTotals(req.Lines),
		CreatedAt:     s.now(),
	}
	s.Repo.CreateInvoice(ctx, userID, inv)
	return inv, nil
}

func (s *LedgerService) GetInvoice(ctx context.Context, userID, id int) (*models.Invoice, error) {
	return s.Repo.GetInvoice(ctx, userID, id)
}

func (s *LedgerService) ListInvoices(ctx context.Context, userID int) []models.Invoice {
	return s.Repo.ListInvoices(ctx, userID)
}

// PrepareVATReturn builds or refreshes the draft return for a period.
// Output VAT comes from income, input VAT from expenses.
func (s *LedgerService) PrepareVATReturn(ctx context.Context, userID int, period string) (*models.VATReturn, error) {
	if period == "" {
		return nil, &ValidationError{Fields: map[string][]string{"period": {"This field is required."}}}
	}
	txs, err := s.ListTransactions(ctx, userID, period)
	if err != nil {
		return nil, err
	}

	if existing, err := s.Repo.FindVATReturn(ctx, userID, period); err == nil && existing.Status == models.VATReturnSubmitted {
		return nil, ErrReturnSubmitted
	}

	ret := &models.VATReturn{
		Period:    period,
		OutputVAT: decimal.Zero,
		InputVAT:  decimal.Zero,
		Status:    models.VATReturnDraft,
	}
	for _, tx := range txs {
		switch tx.Kind {
		case models.TransactionIncome:
			ret.OutputVAT = ret.OutputVAT.Add(tx.VATAmount)
		case models.TransactionExpense:
			ret.InputVAT = ret.InputVAT.Add(tx.VATAmount)
		}
	}
	ret.Payable = ret.OutputVAT.Sub(ret.InputVAT)

	s.Repo.SaveVATReturn(ctx, userID, ret)
	return ret, nil
}

func (s *LedgerService) SubmitVATReturn(ctx context.Context, userID, id int) (*models.VATReturn, error) {
	ret, err := s.Repo.GetVATReturn(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if ret.Status == models.VATReturnSubmitted {
		return nil, ErrReturnSubmitted
	}

	now := s.now()
	ret.Status = models.VATReturnSubmitted
	ret.SubmittedAt = &now
	s.Repo.SaveVATReturn(ctx, userID, ret)

	log.Printf("[VAT] Return %s submitted for user %d, payable %s", ret.Period, userID, format.Currency(ret.Payable))
	return ret, nil
}

func (s *LedgerService) ListVATReturns(ctx context.Context, userID int) []models.VATReturn {
	return s.Repo.ListVATReturns(ctx, userID)
}
