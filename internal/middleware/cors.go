package middleware

import (
	"net/http"

	"btw-buddy/internal/config"

	"github.com/rs/cors"
)

// NewCORS lets the browser build of the app call the dev server
func NewCORS(cfg *config.Config) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.DevServer.CorsAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	})

	return c.Handler
}
