package handlers

import (
	"net/http"

	"btw-buddy/internal/models"
	"btw-buddy/internal/services"
	"btw-buddy/pkg/utils"
)

type RegistrationHandler struct {
	Service *services.UserService
}

func NewRegistrationHandler(s *services.UserService) *RegistrationHandler {
	return &RegistrationHandler{Service: s}
}

// ValidateStep1 checks email, password and name before the wizard moves on
func (h *RegistrationHandler) ValidateStep1(w http.ResponseWriter, r *http.Request) {
	var req models.Step1ValidationRequest
	if !utils.Decode(w, r, &req) {
		return
	}

	if fields := h.Service.ValidateStep1(r.Context(), &req); len(fields) > 0 {
		utils.FieldErrors(w, fields)
		return
	}
	utils.JSON(w, http.StatusOK, models.MessageResponse{Message: "ok"})
}

// Complete creates the account from the full wizard payload
func (h *RegistrationHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req models.RegistrationPayload
	if !utils.Decode(w, r, &req) {
		return
	}

	user, fields, err := h.Service.Register(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if len(fields) > 0 {
		utils.FieldErrors(w, fields)
		return
	}

	utils.JSON(w, http.StatusCreated, models.MessageResponse{
		Message: "Account created for " + user.Email + ". Check your inbox to verify your email address.",
	})
}

func (h *RegistrationHandler) SendVerificationEmail(w http.ResponseWriter, r *http.Request) {
	var req models.SendVerificationEmailRequest
	if !utils.Decode(w, r, &req) {
		return
	}

	if _, err := h.Service.SendVerificationEmail(r.Context(), req.Email); err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, models.MessageResponse{Message: "If the address is registered, a verification email is on its way."})
}

func (h *RegistrationHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyEmailRequest
	if !utils.Decode(w, r, &req) {
		return
	}

	if err := h.Service.VerifyEmail(r.Context(), req.Token); err != nil {
		utils.Error(w, http.StatusBadRequest, "This verification link is invalid or has expired.")
		return
	}
	utils.JSON(w, http.StatusOK, models.MessageResponse{Message: "Email verified."})
}
