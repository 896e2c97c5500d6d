package handlers

import (
	"errors"
	"log"
	"net/http"

	"btw-buddy/internal/middleware"
	"btw-buddy/internal/repositories"
	"btw-buddy/internal/services"
	"btw-buddy/pkg/utils"
)

// writeServiceError maps service and repository errors to responses in the
// shape the client parses: {"detail": ...} or a field error map.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *services.ValidationError
	var totpErr *services.TOTPError

	switch {
	case errors.As(err, &verr):
		utils.FieldErrors(w, verr.Fields)
	case errors.Is(err, services.ErrTooManyAttempts):
		utils.Error(w, http.StatusTooManyRequests, err.Error())
	case errors.As(err, &totpErr):
		utils.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repositories.ErrNotFound):
		utils.Error(w, http.StatusNotFound, "Not found.")
	case errors.Is(err, services.ErrReturnSubmitted):
		utils.Error(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("[HTTP] Unhandled error: %v", err)
		utils.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}

// currentUserID reads the id the auth middleware put on the request
func currentUserID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
	}
	return id, ok
}
