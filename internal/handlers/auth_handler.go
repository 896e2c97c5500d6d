package handlers

import (
	"errors"
	"log"
	"net/http"

	"btw-buddy/internal/models"
	"btw-buddy/internal/services"
	"btw-buddy/pkg/utils"
)

type AuthHandler struct {
	Service *services.UserService
}

func NewAuthHandler(s *services.UserService) *AuthHandler {
	return &AuthHandler{Service: s}
}

// Login handles /auth/login/. Accounts with 2FA get requires_2fa and no tokens.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !utils.Decode(w, r, &req) {
		return
	}

	resp, err := h.Service.Login(r.Context(), &req)
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		log.Printf("[Auth] Failed login for %s from %s", req.Email, getIPAddress(r))
		utils.Error(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	case errors.Is(err, services.ErrAccountInactive):
		utils.Error(w, http.StatusForbidden, "Account suspended.")
		return
	case err != nil:
		writeServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, resp)
}

// VerifyOTP completes a two-factor login and returns {access, refresh}
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyOTPRequest
	if !utils.Decode(w, r, &req) {
		return
	}
	if req.UserID == 0 || req.OTPCode == "" {
		utils.FieldErrors(w, map[string][]string{"otp_code": {"This field is required."}})
		return
	}

	pair, err := h.Service.VerifyOTP(r.Context(), &req)
	if errors.Is(err, services.ErrNoPending2FA) {
		utils.Error(w, http.StatusBadRequest, "Log in with your password first.")
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, pair)
}

// RefreshToken handles /token/refresh/
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if !utils.Decode(w, r, &req) {
		return
	}

	pair, err := h.Service.Refresh(r.Context(), req.Refresh)
	if errors.Is(err, services.ErrInvalidRefresh) {
		utils.JSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "Token is invalid or expired",
			"code":   "token_not_valid",
		})
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, pair)
}

// Me returns the logged-in user's profile
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	user, err := h.Service.Repo.Get(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, user)
}

// getIPAddress extracts the client IP, honouring reverse proxy headers
func getIPAddress(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
