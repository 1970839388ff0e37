// internal/repository/postgres/wallet_pg.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"investflow-core/internal/domain"
	"investflow-core/internal/repository"
	"investflow-core/internal/util"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// WalletRepository implements repository.WalletRepository for PostgreSQL.
type WalletRepository struct{}

// NewWalletRepository creates a new WalletRepository.
func NewWalletRepository(db *sqlx.DB) repository.WalletRepository {
	return &WalletRepository{}
}

const walletColumns = `id, investor_id, balance, total_deposited, total_invested, total_disinvested, version, frozen, created_at, updated_at`

// CreateWallet inserts a new wallet using the provided DBExecutor.
func (r *WalletRepository) CreateWallet(ctx context.Context, q repository.DBExecutor, wallet *domain.Wallet) error {
	query := `INSERT INTO wallets (id, investor_id, balance, total_deposited, total_invested, total_disinvested, version, frozen, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := q.ExecContext(ctx, query,
		wallet.ID,
		wallet.InvestorID,
		wallet.Balance,
		wallet.TotalDeposited,
		wallet.TotalInvested,
		wallet.TotalDisinvested,
		wallet.Version,
		wallet.Frozen,
		wallet.CreatedAt,
		wallet.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return util.ErrInvalidInput
		}
		return fmt.Errorf("failed to create wallet for investor %s: %w", wallet.InvestorID, err)
	}
	return nil
}

// GetWalletByInvestorID retrieves a wallet by investor ID using the provided DBExecutor.
func (r *WalletRepository) GetWalletByInvestorID(ctx context.Context, q repository.DBExecutor, investorID string) (*domain.Wallet, error) {
	var wallet domain.Wallet
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE investor_id = $1`
	err := q.GetContext(ctx, &wallet, query, investorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet for investor %s: %w", investorID, err)
	}
	return &wallet, nil
}

// GetWalletByInvestorIDForUpdate retrieves a wallet with a row lock so that
// concurrent mutations against the same wallet serialize.
func (r *WalletRepository) GetWalletByInvestorIDForUpdate(ctx context.Context, q repository.DBExecutor, investorID string) (*domain.Wallet, error) {
	var wallet domain.Wallet
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE investor_id = $1 FOR UPDATE`
	err := q.GetContext(ctx, &wallet, query, investorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrWalletNotFound
		}
		return nil, mapLockError("failed to lock wallet for investor "+investorID, err)
	}
	return &wallet, nil
}

// ApplyBalanceChange persists the mutated wallet aggregate. The version guard
// detects a write that raced with another mutation.
func (r *WalletRepository) ApplyBalanceChange(ctx context.Context, q repository.DBExecutor, wallet *domain.Wallet) error {
	query := `UPDATE wallets
              SET balance = $1, total_deposited = $2, total_invested = $3, total_disinvested = $4,
                  version = version + 1, updated_at = $5
              WHERE id = $6 AND version = $7 AND frozen = FALSE`
	result, err := q.ExecContext(ctx, query,
		wallet.Balance,
		wallet.TotalDeposited,
		wallet.TotalInvested,
		wallet.TotalDisinvested,
		time.Now().UTC(),
		wallet.ID,
		wallet.Version,
	)
	if err != nil {
		return mapLockError("failed to update wallet "+wallet.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after updating wallet %s: %w", wallet.ID, err)
	}
	if rowsAffected == 0 {
		return util.ErrConflict
	}
	wallet.Version++
	return nil
}

// FreezeWallet marks the wallet frozen; further mutations are rejected until
// an operator intervenes.
func (r *WalletRepository) FreezeWallet(ctx context.Context, q repository.DBExecutor, walletID string) error {
	query := `UPDATE wallets SET frozen = TRUE, updated_at = $1 WHERE id = $2`
	result, err := q.ExecContext(ctx, query, time.Now().UTC(), walletID)
	if err != nil {
		return fmt.Errorf("failed to freeze wallet %s: %w", walletID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after freezing wallet %s: %w", walletID, err)
	}
	if rowsAffected == 0 {
		return util.ErrWalletNotFound
	}
	return nil
}

// mapLockError translates serialization and deadlock SQLSTATEs into the
// retryable conflict error; everything else is wrapped with context.
func mapLockError(msg string, err error) error {
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "40001", "40P01":
			return util.ErrConflict
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
