// internal/service/wallet_service.go
package service

import (
	"context"
	"fmt"
	"log/slog"

	"investflow-core/internal/domain"
	"investflow-core/internal/repository"
	"investflow-core/internal/util"
	"investflow-core/pkg/db"

	"github.com/shopspring/decimal"
)

// WalletService is the wallet manager: the only component allowed to mutate
// wallet balances, and every mutation it applies is backed by exactly one
// ledger entry written in the same transaction.
type WalletService interface {
	CreateWallet(ctx context.Context, investorID string) (*domain.Wallet, error)
	// Deposit credits externally settled funds. Rejects amounts below the
	// platform minimum; replaying a reference ID is rejected with no balance
	// change.
	Deposit(ctx context.Context, investorID string, amount decimal.Decimal, referenceID string) (*domain.Wallet, *domain.LedgerEntry, error)
	// Reserve debits the wallet to back a commitment. Returns
	// ErrInsufficientFunds when the balance does not cover the amount and
	// ErrConflict when a concurrent mutation wins the race after retries.
	Reserve(ctx context.Context, investorID string, amount decimal.Decimal, referenceID string) (*domain.Wallet, *domain.LedgerEntry, error)
	// Release credits a reservation back to the wallet. Called by the
	// commitment engine for disinvestment; never exposed to clients directly.
	Release(ctx context.Context, investorID string, amount decimal.Decimal, referenceID string) (*domain.Wallet, *domain.LedgerEntry, error)
	GetBalance(ctx context.Context, investorID string) (*domain.Wallet, error)
	GetLedgerHistory(ctx context.Context, investorID string, limit, offset int) ([]domain.LedgerEntry, int64, error)
	// ReconstructBalance replays the full ledger and compares it with the
	// stored balance. A mismatch freezes the wallet and returns
	// ErrLedgerIntegrity; it is never silently corrected.
	ReconstructBalance(ctx context.Context, investorID string) (decimal.Decimal, error)
}

// walletService implements the WalletService interface.
type walletService struct {
	dbBeginner     db.DBTxBeginner
	dbExecutor     repository.DBExecutor
	walletRepo     repository.WalletRepository
	ledgerRepo     repository.LedgerRepository
	minimumDeposit decimal.Decimal
	beginTx        db.BeginTxFunc
	commitTx       db.CommitTxFunc
	rollbackTx     db.RollbackTxFunc
	logger         *slog.Logger
}

// NewWalletService creates a new instance of WalletService.
func NewWalletService(
	dbBeginner db.DBTxBeginner,
	dbExecutor repository.DBExecutor,
	walletRepo repository.WalletRepository,
	ledgerRepo repository.LedgerRepository,
	minimumDeposit decimal.Decimal,
	beginTx db.BeginTxFunc,
	commitTx db.CommitTxFunc,
	rollbackTx db.RollbackTxFunc,
	logger *slog.Logger,
) WalletService {
	return &walletService{
		dbBeginner:     dbBeginner,
		dbExecutor:     dbExecutor,
		walletRepo:     walletRepo,
		ledgerRepo:     ledgerRepo,
		minimumDeposit: minimumDeposit,
		beginTx:        beginTx,
		commitTx:       commitTx,
		rollbackTx:     rollbackTx,
		logger:         logger,
	}
}

// CreateWallet provisions an empty wallet for an investor id supplied by the
// identity collaborator.
func (s *walletService) CreateWallet(ctx context.Context, investorID string) (*domain.Wallet, error) {
	if investorID == "" {
		return nil, util.ErrInvalidInput
	}
	wallet := domain.NewWallet(investorID)
	if err := s.walletRepo.CreateWallet(ctx, s.dbExecutor, wallet); err != nil {
		return nil, fmt.Errorf("create wallet: %w", err)
	}
	return wallet, nil
}

// Deposit adds externally settled funds to an investor's wallet.
func (s *walletService) Deposit(ctx context.Context, investorID string, amount decimal.Decimal, referenceID string) (*domain.Wallet, *domain.LedgerEntry, error) {
	if referenceID == "" {
		return nil, nil, util.ErrInvalidInput
	}
	if amount.LessThan(s.minimumDeposit) || amount.LessThanOrEqual(decimal.Zero) {
		return nil, nil, util.ErrInvalidInput
	}

	var (
		wallet *domain.Wallet
		entry  *domain.LedgerEntry
	)
	err := runInTxWithRetry(ctx, s.dbBeginner, s.beginTx, s.commitTx, s.rollbackTx, func(q repository.DBExecutor) error {
		var err error
		wallet, err = s.walletRepo.GetWalletByInvestorIDForUpdate(ctx, q, investorID)
		if err != nil {
			return fmt.Errorf("deposit: %w", err)
		}
		entry, err = creditWallet(ctx, q, s.walletRepo, s.ledgerRepo, wallet, domain.EntryKindDeposit, amount, referenceID)
		if err != nil {
			return fmt.Errorf("deposit: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return wallet, entry, nil
}

// Reserve atomically checks and debits the wallet to back a commitment.
func (s *walletService) Reserve(ctx context.Context, investorID string, amount decimal.Decimal, referenceID string) (*domain.Wallet, *domain.LedgerEntry, error) {
	if referenceID == "" || amount.LessThanOrEqual(decimal.Zero) {
		return nil, nil, util.ErrInvalidInput
	}

	var (
		wallet *domain.Wallet
		entry  *domain.LedgerEntry
	)
	err := runInTxWithRetry(ctx, s.dbBeginner, s.beginTx, s.commitTx, s.rollbackTx, func(q repository.DBExecutor) error {
		var err error
		wallet, err = s.walletRepo.GetWalletByInvestorIDForUpdate(ctx, q, investorID)
		if err != nil {
			return fmt.Errorf("reserve: %w", err)
		}
		entry, err = debitWallet(ctx, q, s.walletRepo, s.ledgerRepo, wallet, amount, referenceID)
		if err != nil {
			return fmt.Errorf("reserve: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return wallet, entry, nil
}

// Release credits reserved funds back to the wallet as a disinvestment.
func (s *walletService) Release(ctx context.Context, investorID string, amount decimal.Decimal, referenceID string) (*domain.Wallet, *domain.LedgerEntry, error) {
	if referenceID == "" || amount.LessThanOrEqual(decimal.Zero) {
		return nil, nil, util.ErrInvalidInput
	}

	var (
		wallet *domain.Wallet
		entry  *domain.LedgerEntry
	)
	err := runInTxWithRetry(ctx, s.dbBeginner, s.beginTx, s.commitTx, s.rollbackTx, func(q repository.DBExecutor) error {
		var err error
		wallet, err = s.walletRepo.GetWalletByInvestorIDForUpdate(ctx, q, investorID)
		if err != nil {
			return fmt.Errorf("release: %w", err)
		}
		entry, err = creditWallet(ctx, q, s.walletRepo, s.ledgerRepo, wallet, domain.EntryKindDisinvestment, amount, referenceID)
		if err != nil {
			return fmt.Errorf("release: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return wallet, entry, nil
}

// GetBalance returns the wallet for the given investor.
func (s *walletService) GetBalance(ctx context.Context, investorID string) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetWalletByInvestorID(ctx, s.dbExecutor, investorID)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return wallet, nil
}

// GetLedgerHistory retrieves a page of the wallet's ledger in creation order.
func (s *walletService) GetLedgerHistory(ctx context.Context, investorID string, limit, offset int) ([]domain.LedgerEntry, int64, error) {
	wallet, err := s.walletRepo.GetWalletByInvestorID(ctx, s.dbExecutor, investorID)
	if err != nil {
		return nil, 0, fmt.Errorf("ledger history: %w", err)
	}
	entries, totalCount, err := s.ledgerRepo.ListEntriesByWalletID(ctx, s.dbExecutor, wallet.ID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ledger history: %w", err)
	}
	return entries, totalCount, nil
}

// ReconstructBalance replays the ledger from zero and audits it against the
// stored balance, checking each entry's recorded balance-after along the way.
// Wallet and ledger are read in one transaction under the wallet row lock, so
// a mutation committing mid-audit cannot produce a snapshot where the ledger
// and the stored balance disagree for benign reasons.
func (s *walletService) ReconstructBalance(ctx context.Context, investorID string) (decimal.Decimal, error) {
	var (
		wallet  *domain.Wallet
		entries []domain.LedgerEntry
	)
	err := runInTx(ctx, s.dbBeginner, s.beginTx, s.commitTx, s.rollbackTx, func(q repository.DBExecutor) error {
		var err error
		wallet, err = s.walletRepo.GetWalletByInvestorIDForUpdate(ctx, q, investorID)
		if err != nil {
			return fmt.Errorf("reconstruct balance: %w", err)
		}
		entries, err = s.ledgerRepo.ListAllEntriesByWalletID(ctx, q, wallet.ID)
		if err != nil {
			return fmt.Errorf("reconstruct balance: %w", err)
		}
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	replayed := decimal.Zero
	for i := range entries {
		replayed = entries[i].Apply(replayed)
		if !replayed.Equal(entries[i].BalanceAfter) {
			return decimal.Zero, s.escalateIntegrityViolation(ctx, wallet, entries[i].ID, replayed, entries[i].BalanceAfter)
		}
	}

	if !replayed.Equal(wallet.Balance) || !wallet.Consistent() {
		return decimal.Zero, s.escalateIntegrityViolation(ctx, wallet, "", replayed, wallet.Balance)
	}
	return replayed, nil
}

// escalateIntegrityViolation freezes the wallet and raises the fatal error.
// The mismatch is an operator problem; it is never auto-corrected.
func (s *walletService) escalateIntegrityViolation(ctx context.Context, wallet *domain.Wallet, entryID string, replayed, recorded decimal.Decimal) error {
	s.logger.Error("ledger integrity violation, freezing wallet",
		"wallet_id", wallet.ID,
		"investor_id", wallet.InvestorID,
		"entry_id", entryID,
		"replayed_balance", replayed.String(),
		"recorded_balance", recorded.String(),
	)
	if err := s.walletRepo.FreezeWallet(ctx, s.dbExecutor, wallet.ID); err != nil {
		s.logger.Error("failed to freeze wallet after integrity violation", "wallet_id", wallet.ID, "error", err)
	}
	return util.ErrLedgerIntegrity
}
