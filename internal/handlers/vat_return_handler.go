package handlers

import (
	"net/http"
	"strconv"

	"btw-buddy/internal/models"
	"btw-buddy/internal/services"
	"btw-buddy/pkg/utils"

	"github.com/gorilla/mux"
)

type VATReturnHandler struct {
	Service *services.LedgerService
}

func NewVATReturnHandler(s *services.LedgerService) *VATReturnHandler {
	return &VATReturnHandler{Service: s}
}

func (h *VATReturnHandler) ListVATReturns(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	utils.JSON(w, http.StatusOK, h.Service.ListVATReturns(r.Context(), userID))
}

// PrepareVATReturn creates or recomputes the draft for a period
func (h *VATReturnHandler) PrepareVATReturn(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req models.PrepareVATReturnRequest
	if !utils.Decode(w, r, &req) {
		return
	}

	ret, err := h.Service.PrepareVATReturn(r.Context(), userID, req.Period)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, ret)
}

func (h *VATReturnHandler) SubmitVATReturn(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid VAT return ID")
		return
	}

	ret, err := h.Service.SubmitVATReturn(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, ret)
}
