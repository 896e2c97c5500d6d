package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"btw-buddy/internal/models"
	"btw-buddy/internal/pdf"
	"btw-buddy/internal/services"
	"btw-buddy/pkg/utils"

	"github.com/gorilla/mux"
)

type InvoiceHandler struct {
	Service *services.LedgerService
}

func NewInvoiceHandler(s *services.LedgerService) *InvoiceHandler {
	return &InvoiceHandler{Service: s}
}

func (h *InvoiceHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	utils.JSON(w, http.StatusOK, h.Service.ListInvoices(r.Context(), userID))
}

// CreateInvoice stores an invoice; totals are always computed server side
func (h *InvoiceHandler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req models.CreateInvoiceRequest
	if !utils.Decode(w, r, &req) {
		return
	}

	invoice, err := h.Service.CreateInvoice(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, invoice)
}

// InvoicePDF renders the invoice with its VAT breakdown
func (h *InvoiceHandler) InvoicePDF(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	invoice, err := h.Service.GetInvoice(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	data, err := pdf.Render(pdf.FromInvoice(invoice))
	if err != nil {
		log.Printf("[PDF] Failed to render invoice %d: %v", id, err)
		utils.Error(w, http.StatusInternalServerError, "Failed to render PDF")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=factuur-%s.pdf", invoice.InvoiceNumber))
	w.Write(data)
}
