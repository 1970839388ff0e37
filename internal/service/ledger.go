// internal/service/ledger.go
package service

import (
	"context"
	"errors"
	"fmt"

	"investflow-core/internal/domain"
	"investflow-core/internal/repository"
	"investflow-core/internal/util"
	"investflow-core/pkg/db"

	"github.com/shopspring/decimal"
)

// maxConflictRetries bounds the optimistic retry loop before a conflict is
// surfaced to the caller.
const maxConflictRetries = 3

// runInTx executes fn inside a single database transaction. The transaction
// is rolled back unless fn succeeds and the commit goes through.
func runInTx(
	ctx context.Context,
	beginner db.DBTxBeginner,
	beginTx db.BeginTxFunc,
	commitTx db.CommitTxFunc,
	rollbackTx db.RollbackTxFunc,
	fn func(q repository.DBExecutor) error,
) error {
	txController, err := beginTx(ctx, beginner)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return fmt.Errorf("transaction controller does not implement DBExecutor")
	}

	if err := fn(txExecutor); err != nil {
		return err
	}

	if err := commitTx(txController); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// runInTxWithRetry re-runs the transaction a bounded number of times when it
// loses a serialization race, then surfaces the conflict.
func runInTxWithRetry(
	ctx context.Context,
	beginner db.DBTxBeginner,
	beginTx db.BeginTxFunc,
	commitTx db.CommitTxFunc,
	rollbackTx db.RollbackTxFunc,
	fn func(q repository.DBExecutor) error,
) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = runInTx(ctx, beginner, beginTx, commitTx, rollbackTx, fn)
		if !errors.Is(err, util.ErrConflict) {
			return err
		}
	}
	return err
}

// debitWallet applies a ledger-backed debit to a locked wallet: the balance
// check, the balance write and the ledger append happen against the same
// transaction executor, so they commit or fail as one.
func debitWallet(
	ctx context.Context,
	q repository.DBExecutor,
	walletRepo repository.WalletRepository,
	ledgerRepo repository.LedgerRepository,
	wallet *domain.Wallet,
	amount decimal.Decimal,
	referenceID string,
) (*domain.LedgerEntry, error) {
	if wallet.Frozen {
		return nil, util.ErrWalletFrozen
	}
	if wallet.Balance.LessThan(amount) {
		return nil, util.ErrInsufficientFunds
	}

	wallet.Balance = wallet.Balance.Sub(amount)
	wallet.TotalInvested = wallet.TotalInvested.Add(amount)
	if err := walletRepo.ApplyBalanceChange(ctx, q, wallet); err != nil {
		return nil, err
	}

	entry := domain.NewLedgerEntry(wallet, domain.EntryKindInvestment, amount, wallet.Balance, referenceID)
	if err := ledgerRepo.AppendEntry(ctx, q, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// creditWallet applies a ledger-backed credit to a locked wallet, bumping the
// running total that matches the entry kind (deposit or disinvestment).
func creditWallet(
	ctx context.Context,
	q repository.DBExecutor,
	walletRepo repository.WalletRepository,
	ledgerRepo repository.LedgerRepository,
	wallet *domain.Wallet,
	kind domain.EntryKind,
	amount decimal.Decimal,
	referenceID string,
) (*domain.LedgerEntry, error) {
	if wallet.Frozen {
		return nil, util.ErrWalletFrozen
	}

	wallet.Balance = wallet.Balance.Add(amount)
	switch kind {
	case domain.EntryKindDeposit:
		wallet.TotalDeposited = wallet.TotalDeposited.Add(amount)
	case domain.EntryKindDisinvestment:
		wallet.TotalDisinvested = wallet.TotalDisinvested.Add(amount)
	default:
		return nil, fmt.Errorf("credit with non-credit entry kind %s", kind)
	}
	if err := walletRepo.ApplyBalanceChange(ctx, q, wallet); err != nil {
		return nil, err
	}

	entry := domain.NewLedgerEntry(wallet, kind, amount, wallet.Balance, referenceID)
	if err := ledgerRepo.AppendEntry(ctx, q, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
