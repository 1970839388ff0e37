// internal/repository/wallet_repo.go
package repository

import (
	"context"

	"investflow-core/internal/domain"
)

// WalletRepository defines the interface for wallet data operations.
//
// Mutations persist the whole aggregate (balance, running totals, frozen flag)
// guarded by the wallet's version column, so a lost update surfaces as a
// conflict instead of silently overwriting a concurrent change.
type WalletRepository interface {
	// CreateWallet adds a new wallet to the database.
	CreateWallet(ctx context.Context, q DBExecutor, wallet *domain.Wallet) error
	// GetWalletByInvestorID retrieves the wallet owned by an investor.
	GetWalletByInvestorID(ctx context.Context, q DBExecutor, investorID string) (*domain.Wallet, error)
	// GetWalletByInvestorIDForUpdate retrieves the wallet with a row lock; must
	// be called inside a transaction.
	GetWalletByInvestorIDForUpdate(ctx context.Context, q DBExecutor, investorID string) (*domain.Wallet, error)
	// ApplyBalanceChange persists the mutated wallet state if its version still
	// matches; returns ErrConflict otherwise.
	ApplyBalanceChange(ctx context.Context, q DBExecutor, wallet *domain.Wallet) error
	// FreezeWallet marks the wallet frozen after an integrity violation.
	FreezeWallet(ctx context.Context, q DBExecutor, walletID string) error
}
