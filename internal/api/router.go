// internal/api/router.go
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"investflow-core/internal/api/handler"
)

// NewRouter sets up and returns a new HTTP router.
func NewRouter(walletHandler *handler.WalletHandler, commitmentHandler *handler.CommitmentHandler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(handler.DefaultTimeout))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Wallet API routes
	r.Route("/wallets", func(r chi.Router) {
		r.Post("/", walletHandler.CreateWallet)
		r.Post("/{investorID}/deposit", walletHandler.Deposit)
		r.Get("/{investorID}/balance", walletHandler.GetBalance)
		r.Get("/{investorID}/ledger", walletHandler.GetLedger)
		r.Post("/{investorID}/audit", walletHandler.Audit)
	})

	// Commitment API routes
	r.Route("/commitments", func(r chi.Router) {
		r.Post("/", commitmentHandler.Create)
		r.Get("/{commitmentID}", commitmentHandler.Get)
		r.Post("/{commitmentID}/respond", commitmentHandler.Respond)
		r.Post("/{commitmentID}/disinvest", commitmentHandler.Disinvest)
		r.Post("/{commitmentID}/signed", commitmentHandler.MarkSigned)
		r.Get("/{commitmentID}/messages", commitmentHandler.ListMessages)
		r.Post("/{commitmentID}/messages", commitmentHandler.PostMessage)
	})

	return r
}
