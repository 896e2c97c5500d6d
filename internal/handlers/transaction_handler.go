package handlers

import (
	"net/http"

	"btw-buddy/internal/models"
	"btw-buddy/internal/services"
	"btw-buddy/pkg/utils"
)

type TransactionHandler struct {
	Service *services.LedgerService
}

func NewTransactionHandler(s *services.LedgerService) *TransactionHandler {
	return &TransactionHandler{Service: s}
}

// ListTransactions accepts ?period=2024-Q3 (or 2024-07, 2024)
func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	txs, err := h.Service.ListTransactions(r.Context(), userID, r.URL.Query().Get("period"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, txs)
}

func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req models.CreateTransactionRequest
	if !utils.Decode(w, r, &req) {
		return
	}

	tx, err := h.Service.CreateTransaction(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, tx)
}
