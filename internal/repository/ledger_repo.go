// internal/repository/ledger_repo.go
package repository

import (
	"context"

	"investflow-core/internal/domain"
)

// LedgerRepository defines the interface for the append-only ledger store.
type LedgerRepository interface {
	// AppendEntry writes an immutable ledger entry. A duplicate
	// (reference_id, kind) pair returns ErrDuplicateReference.
	AppendEntry(ctx context.Context, q DBExecutor, entry *domain.LedgerEntry) error
	// ListEntriesByWalletID retrieves a page of ledger entries for a wallet in
	// creation order, plus the total count.
	ListEntriesByWalletID(ctx context.Context, q DBExecutor, walletID string, limit, offset int) ([]domain.LedgerEntry, int64, error)
	// ListAllEntriesByWalletID retrieves the full ledger for a wallet in
	// creation order, for balance replay.
	ListAllEntriesByWalletID(ctx context.Context, q DBExecutor, walletID string) ([]domain.LedgerEntry, error)
}
