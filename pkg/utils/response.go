package utils

import (
	"encoding/json"
	"log"
	"net/http"
)

func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[HTTP] Failed to encode response: %v", err)
	}
}

// Error writes {"detail": message}
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"detail": message})
}

// FieldErrors writes a 400 with one message list per field
func FieldErrors(w http.ResponseWriter, fields map[string][]string) {
	JSON(w, http.StatusBadRequest, fields)
}

// Decode reads a JSON body into v, writing a 400 on failure
func Decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
