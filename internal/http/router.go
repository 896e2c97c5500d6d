package http

import (
	"net/http"

	"btw-buddy/internal/config"
	"btw-buddy/internal/handlers"
	"btw-buddy/internal/metrics"
	"btw-buddy/internal/middleware"

	"github.com/gorilla/mux"
)

func NewRouter(
	authHandler *handlers.AuthHandler,
	registrationHandler *handlers.RegistrationHandler,
	totpHandler *handlers.TOTPHandler,
	transactionHandler *handlers.TransactionHandler,
	receiptHandler *handlers.ReceiptHandler,
	invoiceHandler *handlers.InvoiceHandler,
	vatReturnHandler *handlers.VATReturnHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.PanicRecovery, middleware.MetricsMiddleware, middleware.APILogging)

	// Public API routes - token issuing
	r.HandleFunc("/api/auth/login/", authHandler.Login).Methods("POST")
	r.HandleFunc("/api/auth/verify-otp/", authHandler.VerifyOTP).Methods("POST")
	r.HandleFunc("/api/token/refresh/", authHandler.RefreshToken).Methods("POST")

	// Public API routes - registration wizard
	r.HandleFunc("/api/auth/register/step1/validate/", registrationHandler.ValidateStep1).Methods("POST")
	r.HandleFunc("/api/auth/register/complete/", registrationHandler.Complete).Methods("POST")
	r.HandleFunc("/api/auth/send-verification-email/", registrationHandler.SendVerificationEmail).Methods("POST")
	r.HandleFunc("/api/auth/verify-email/", registrationHandler.VerifyEmail).Methods("POST")

	// Everything else under /api needs a bearer token
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("/auth/me/", authHandler.Me).Methods("GET")
	api.HandleFunc("/auth/2fa/setup/", totpHandler.SetupTOTP).Methods("POST")
	api.HandleFunc("/auth/2fa/enable/", totpHandler.EnableTOTP).Methods("POST")

	api.HandleFunc("/transactions/", transactionHandler.ListTransactions).Methods("GET")
	api.HandleFunc("/transactions/", transactionHandler.CreateTransaction).Methods("POST")

	api.HandleFunc("/receipts/", receiptHandler.ListReceipts).Methods("GET")
	api.HandleFunc("/receipts/", receiptHandler.UploadReceipt).Methods("POST")
	api.HandleFunc("/receipts/{id:[0-9]+}/file/", receiptHandler.DownloadReceipt).Methods("GET")
	api.HandleFunc("/receipts/{id:[0-9]+}/link/", receiptHandler.LinkReceipt).Methods("POST")

	api.HandleFunc("/invoices/", invoiceHandler.ListInvoices).Methods("GET")
	api.HandleFunc("/invoices/", invoiceHandler.CreateInvoice).Methods("POST")
	api.HandleFunc("/invoices/{id:[0-9]+}/pdf/", invoiceHandler.InvoicePDF).Methods("GET")

	api.HandleFunc("/vat-returns/", vatReturnHandler.ListVATReturns).Methods("GET")
	api.HandleFunc("/vat-returns/", vatReturnHandler.PrepareVATReturn).Methods("POST")
	api.HandleFunc("/vat-returns/{id:[0-9]+}/submit/", vatReturnHandler.SubmitVATReturn).Methods("POST")

	// Health check endpoints
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")

	// Prometheus metrics endpoint
	r.Handle("/metrics", metrics.Handler())

	return r
}

// WithCORS wraps the router so browser preflight requests are answered
// before route matching
func WithCORS(cfg *config.Config, r *mux.Router) http.Handler {
	return middleware.NewCORS(cfg)(r)
}
