// internal/api/handler/wallet.go
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"investflow-core/internal/api/types"
	"investflow-core/internal/domain"
	"investflow-core/internal/service"
	"investflow-core/internal/util"
)

// WalletHandler handles HTTP requests related to wallet operations.
type WalletHandler struct {
	service service.WalletService
	logger  *slog.Logger
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(svc service.WalletService, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{
		service: svc,
		logger:  logger,
	}
}

// CreateWalletRequest represents the request body for wallet creation.
type CreateWalletRequest struct {
	InvestorID string `json:"investor_id"`
}

// CreateWallet handles wallet provisioning for an investor.
// POST /wallets
func (h *WalletHandler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	var req CreateWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	if req.InvestorID == "" {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	wallet, err := h.service.CreateWallet(r.Context(), req.InvestorID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusCreated, wallet)
}

// DepositRequest represents the request body for deposit.
type DepositRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	ReferenceID string          `json:"reference_id"`
}

// Deposit handles the deposit money request.
// POST /wallets/{investorID}/deposit
func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	investorID := chi.URLParam(r, "investorID")

	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	if req.Amount.IsNegative() || req.Amount.IsZero() || req.ReferenceID == "" {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	wallet, entry, err := h.service.Deposit(r.Context(), investorID, req.Amount, req.ReferenceID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"message":         "Deposit successful",
		"wallet_id":       wallet.ID,
		"new_balance":     wallet.Balance,
		"ledger_entry_id": entry.ID,
	})
}

// GetBalance handles the get wallet balance request.
// GET /wallets/{investorID}/balance
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	investorID := chi.URLParam(r, "investorID")

	wallet, err := h.service.GetBalance(r.Context(), investorID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"wallet_id":         wallet.ID,
		"investor_id":       wallet.InvestorID,
		"balance":           wallet.Balance,
		"total_deposited":   wallet.TotalDeposited,
		"total_invested":    wallet.TotalInvested,
		"total_disinvested": wallet.TotalDisinvested,
		"frozen":            wallet.Frozen,
	})
}

// GetLedger handles the ledger history request.
// GET /wallets/{investorID}/ledger
func (h *WalletHandler) GetLedger(w http.ResponseWriter, r *http.Request) {
	investorID := chi.URLParam(r, "investorID")
	limit, offset := pagination(r)

	entries, totalCount, err := h.service.GetLedgerHistory(r.Context(), investorID, limit, offset)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, types.PaginatedResponse[domain.LedgerEntry]{
		Data:       entries,
		Limit:      limit,
		Offset:     offset,
		TotalCount: totalCount,
	})
}

// Audit handles the balance reconstruction request.
// POST /wallets/{investorID}/audit
func (h *WalletHandler) Audit(w http.ResponseWriter, r *http.Request) {
	investorID := chi.URLParam(r, "investorID")

	balance, err := h.service.ReconstructBalance(r.Context(), investorID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"message":          "Ledger replay matches stored balance",
		"replayed_balance": balance,
	})
}
