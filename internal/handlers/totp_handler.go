package handlers

import (
	"net/http"

	"btw-buddy/internal/models"
	"btw-buddy/internal/repositories"
	"btw-buddy/internal/services"
	"btw-buddy/pkg/utils"
)

type TOTPHandler struct {
	TOTPService *services.TOTPService
	UserRepo    *repositories.UserRepository
}

func NewTOTPHandler(totpService *services.TOTPService, userRepo *repositories.UserRepository) *TOTPHandler {
	return &TOTPHandler{
		TOTPService: totpService,
		UserRepo:    userRepo,
	}
}

// SetupTOTP initiates 2FA setup - returns secret and QR code
func (h *TOTPHandler) SetupTOTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	user, err := h.UserRepo.Get(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response, err := h.TOTPService.GenerateSetup(r.Context(), user)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, response)
}

// EnableTOTP verifies the first code and turns 2FA on
func (h *TOTPHandler) EnableTOTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req models.TOTPEnableRequest
	if !utils.Decode(w, r, &req) {
		return
	}
	if req.Code == "" {
		utils.FieldErrors(w, map[string][]string{"code": {"Verification code is required."}})
		return
	}

	if err := h.TOTPService.VerifyAndEnable(r.Context(), userID, req.Code); err != nil {
		writeServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, models.MessageResponse{Message: "2FA enabled successfully"})
}
