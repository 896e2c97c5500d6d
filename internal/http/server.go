package http

import (
	"net/http"
	"time"

	"btw-buddy/internal/archive"
	"btw-buddy/internal/auth"
	"btw-buddy/internal/config"
	"btw-buddy/internal/handlers"
	"btw-buddy/internal/health"
	"btw-buddy/internal/middleware"
	"btw-buddy/internal/repositories"
	"btw-buddy/internal/services"
)

// NewDevServer wires repositories, services and handlers into the full
// development backend. arch may be nil.
func NewDevServer(cfg *config.Config, issuer *auth.Issuer, arch *archive.Archive) http.Handler {
	// Repositories
	userRepo := repositories.NewUserRepository()
	ledgerRepo := repositories.NewLedgerRepository()

	// Services
	totpService := services.NewTOTPService(userRepo, repositories.NewTOTPRepository())
	userService := services.NewUserService(
		userRepo,
		issuer,
		totpService,
		time.Duration(cfg.DevServer.RefreshTTLHours)*time.Hour,
		cfg.DevServer.RotateRefresh,
	)
	ledgerService := services.NewLedgerService(ledgerRepo, arch)

	// Health: only ping the archive when one is configured
	var checker *health.HealthChecker
	if arch != nil {
		checker = health.NewHealthChecker(arch)
	} else {
		checker = health.NewHealthChecker(nil)
	}

	router := NewRouter(
		handlers.NewAuthHandler(userService),
		handlers.NewRegistrationHandler(userService),
		handlers.NewTOTPHandler(totpService, userRepo),
		handlers.NewTransactionHandler(ledgerService),
		handlers.NewReceiptHandler(ledgerService),
		handlers.NewInvoiceHandler(ledgerService),
		handlers.NewVATReturnHandler(ledgerService),
		handlers.NewHealthHandler(checker),
		middleware.NewAuthMiddleware(issuer, userRepo),
	)
	return WithCORS(cfg, router)
}
