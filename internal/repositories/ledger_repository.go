package repositories

import (
	"context"
	"sort"
	"sync"

	"btw-buddy/internal/models"
)

// StoredReceipt is a receipt with its file content
type StoredReceipt struct {
	models.Receipt
	Content    []byte
	ArchiveKey string
}

type ledger struct {
	transactions []*models.Transaction
	receipts     []*StoredReceipt
	invoices     []*models.Invoice
	returns      []*models.VATReturn
}

// LedgerRepository keeps each user's bookkeeping records in memory
type LedgerRepository struct {
	mu      sync.RWMutex
	ledgers map[int]*ledger
	nextID  int
}

func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{ledgers: make(map[int]*ledger), nextID: 1}
}

func (r *LedgerRepository) ledgerFor(userID int) *ledger {
	l, ok := r.ledgers[userID]
	if !ok {
		l = &ledger{}
		r.ledgers[userID] = l
	}
	return l
}

func (r *LedgerRepository) id() int {
	id := r.nextID
	r.nextID++
	return id
}

func (r *LedgerRepository) CreateTransaction(ctx context.Context, userID int, tx *models.Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx.ID = r.id()
	stored := *tx
	l := r.ledgerFor(userID)
	l.transactions = append(l.transactions, &stored)
}

// ListTransactions returns transactions ordered by date, then id
func (r *LedgerRepository) ListTransactions(ctx context.Context, userID int) []models.Transaction {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.ledgers[userID]
	if !ok {
		return []models.Transaction{}
	}
	out := make([]models.Transaction, 0, len(l.transactions))
	for _, tx := range l.transactions {
		out = append(out, *tx)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *LedgerRepository) CreateReceipt(ctx context.Context, userID int, rc *StoredReceipt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rc.ID = r.id()
	stored := *rc
	l := r.ledgerFor(userID)
	l.receipts = append(l.receipts, &stored)
}

func (r *LedgerRepository) ListReceipts(ctx context.Context, userID int) []models.Receipt {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.ledgers[userID]
	if !ok {
		return []models.Receipt{}
	}
	out := make([]models.Receipt, 0, len(l.receipts))
	for _, rc := range l.receipts {
		out = append(out, rc.Receipt)
	}
	return out
}

// LinkReceipt attaches a receipt to a transaction owned by the same user
func (r *LedgerRepository) LinkReceipt(ctx context.Context, userID, receiptID, transactionID int) (*models.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.ledgers[userID]
	if !ok {
		return nil, ErrNotFound
	}

	var receipt *StoredReceipt
	for _, rc := range l.receipts {
		if rc.ID == receiptID {
			receipt = rc
		}
	}
	var tx *models.Transaction
	for _, t := range l.transactions {
		if t.ID == transactionID {
			tx = t
		}
	}
	if receipt == nil || tx == nil {
		return nil, ErrNotFound
	}

	receipt.TransactionID = &tx.ID
	tx.ReceiptID = &receipt.ID
	out := receipt.Receipt
	return &out, nil
}

func (r *LedgerRepository) CreateInvoice(ctx context.Context, userID int, inv *models.Invoice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv.ID = r.id()
	stored := *inv
	l := r.ledgerFor(userID)
	l.invoices = append(l.invoices, &stored)
}

func (r *LedgerRepository) CountInvoices(ctx context.Context, userID int) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if l, ok := r.ledgers[userID]; ok {
		return len(l.invoices)
	}
	return 0
}

func (r *LedgerRepository) ListInvoices(ctx context.Context, userID int) []models.Invoice {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.ledgers[userID]
	if !ok {
		return []models.Invoice{}
	}
	out := make([]models.Invoice, 0, len(l.invoices))
	for _, inv := range l.invoices {
		out = append(out, *inv)
	}
	return out
}

// SaveVATReturn inserts a return or replaces the draft for the same period
func (r *LedgerRepository) SaveVATReturn(ctx context.Context, userID int, ret *models.VATReturn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l := r.ledgerFor(userID)
	for i, existing := range l.returns {
		if existing.Period == ret.Period {
			ret.ID = existing.ID
			stored := *ret
			l.returns[i] = &stored
			return
		}
	}
	ret.ID = r.id()
	stored := *ret
	l.returns = append(l.returns, &stored)
}

func (r *LedgerRepository) GetVATReturn(ctx context.Context, userID, id int) (*models.VATReturn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if l, ok := r.ledgers[userID]; ok {
		for _, ret := range l.returns {
			if ret.ID == id {
				out := *ret
				return &out, nil
			}
		}
	}
	return nil, ErrNotFound
}

func (r *LedgerRepository) FindVATReturn(ctx context.Context, userID int, period string) (*models.VATReturn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if l, ok := r.ledgers[userID]; ok {
		for _, ret := range l.returns {
			if ret.Period == period {
				out := *ret
				return &out, nil
			}
		}
	}
	return nil, ErrNotFound
}

func (r *LedgerRepository) ListVATReturns(ctx context.Context, userID int) []models.VATReturn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.ledgers[userID]
	if !ok {
		return []models.VATReturn{}
	}
	out := make([]models.VATReturn, 0, len(l.returns))
	for _, ret := range l.returns {
		out = append(out, *ret)
	}
	return out
}

// SetReceiptArchiveKey records where a receipt was mirrored in object storage
func (r *LedgerRepository) SetReceiptArchiveKey(ctx context.Context, userID, receiptID int, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.ledgers[userID]; ok {
		for _, rc := range l.receipts {
			if rc.ID == receiptID {
				rc.ArchiveKey = key
			}
		}
	}
}

func (r *LedgerRepository) GetReceipt(ctx context.Context, userID, receiptID int) (*StoredReceipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if l, ok := r.ledgers[userID]; ok {
		for _, rc := range l.receipts {
			if rc.ID == receiptID {
				out := *rc
				return &out, nil
			}
		}
	}
	return nil, ErrNotFound
}

func (r *LedgerRepository) GetInvoice(ctx context.Context, userID, id int) (*models.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if l, ok := r.ledgers[userID]; ok {
		for _, inv := range l.invoices {
			if inv.ID == id {
				out := *inv
				return &out, nil
			}
		}
	}
	return nil, ErrNotFound
}
