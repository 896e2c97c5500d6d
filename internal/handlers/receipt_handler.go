package handlers

import (
	"io"
	"net/http"
	"strconv"

	"btw-buddy/internal/models"
	"btw-buddy/internal/services"
	"btw-buddy/pkg/utils"

	"github.com/gorilla/mux"
)

type ReceiptHandler struct {
	Service *services.LedgerService
}

func NewReceiptHandler(s *services.LedgerService) *ReceiptHandler {
	return &ReceiptHandler{Service: s}
}

func (h *ReceiptHandler) ListReceipts(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	utils.JSON(w, http.StatusOK, h.Service.ListReceipts(r.Context(), userID))
}

// UploadReceipt takes multipart form data with the file in field "file"
func (h *ReceiptHandler) UploadReceipt(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, services.MaxReceiptSize+1<<20)
	if err := r.ParseMultipartForm(services.MaxReceiptSize); err != nil {
		utils.FieldErrors(w, map[string][]string{"file": {"Upload the receipt as multipart form data."}})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.FieldErrors(w, map[string][]string{"file": {"No file was submitted."}})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	receipt, err := h.Service.UploadReceipt(r.Context(), userID, header.Filename, header.Header.Get("Content-Type"), content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, receipt)
}

// DownloadReceipt streams the stored file back
func (h *ReceiptHandler) DownloadReceipt(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid receipt ID")
		return
	}

	receipt, content, err := h.Service.ReceiptFile(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", receipt.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(receipt.Filename))
	w.Write(content)
}

func (h *ReceiptHandler) LinkReceipt(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid receipt ID")
		return
	}

	var req models.LinkReceiptRequest
	if !utils.Decode(w, r, &req) {
		return
	}

	receipt, err := h.Service.LinkReceipt(r.Context(), userID, id, req.TransactionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, receipt)
}
