// internal/repository/postgres/ledger_pg.go
package postgres

import (
	"context"
	"fmt"

	"investflow-core/internal/domain"
	"investflow-core/internal/repository"
	"investflow-core/internal/util"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// LedgerRepository implements repository.LedgerRepository for PostgreSQL.
type LedgerRepository struct{}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(db *sqlx.DB) repository.LedgerRepository {
	return &LedgerRepository{}
}

const ledgerColumns = `id, seq, wallet_id, investor_id, kind, amount, balance_after, reference_id, created_at`

// AppendEntry inserts an immutable ledger entry using the provided DBExecutor.
// The unique (reference_id, kind) index makes settlement retries idempotent.
func (r *LedgerRepository) AppendEntry(ctx context.Context, q repository.DBExecutor, entry *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (id, wallet_id, investor_id, kind, amount, balance_after, reference_id, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := q.ExecContext(ctx, query,
		entry.ID,
		entry.WalletID,
		entry.InvestorID,
		entry.Kind,
		entry.Amount,
		entry.BalanceAfter,
		entry.ReferenceID,
		entry.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return util.ErrDuplicateReference
		}
		return fmt.Errorf("failed to append ledger entry for wallet %s: %w", entry.WalletID, err)
	}
	return nil
}

// ListEntriesByWalletID retrieves a paginated list of ledger entries for a
// wallet in insertion order, plus the total count. Ordering uses the
// database-assigned seq rather than created_at: timestamps can collide within
// a microsecond and uuids carry no order.
func (r *LedgerRepository) ListEntriesByWalletID(ctx context.Context, q repository.DBExecutor, walletID string, limit, offset int) ([]domain.LedgerEntry, int64, error) {
	entries := []domain.LedgerEntry{}

	query := `SELECT ` + ledgerColumns + `
              FROM ledger_entries
              WHERE wallet_id = $1
              ORDER BY seq ASC
              LIMIT $2 OFFSET $3`
	if err := q.SelectContext(ctx, &entries, query, walletID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to fetch ledger entries for wallet %s: %w", walletID, err)
	}

	var totalCount int64
	countQuery := `SELECT COUNT(*) FROM ledger_entries WHERE wallet_id = $1`
	if err := q.GetContext(ctx, &totalCount, countQuery, walletID); err != nil {
		return nil, 0, fmt.Errorf("failed to count ledger entries for wallet %s: %w", walletID, err)
	}

	return entries, totalCount, nil
}

// ListAllEntriesByWalletID retrieves the full ledger for a wallet in
// insertion order. Used by balance reconstruction, which depends on replaying
// entries exactly as they were appended.
func (r *LedgerRepository) ListAllEntriesByWalletID(ctx context.Context, q repository.DBExecutor, walletID string) ([]domain.LedgerEntry, error) {
	entries := []domain.LedgerEntry{}
	query := `SELECT ` + ledgerColumns + `
              FROM ledger_entries
              WHERE wallet_id = $1
              ORDER BY seq ASC`
	if err := q.SelectContext(ctx, &entries, query, walletID); err != nil {
		return nil, fmt.Errorf("failed to fetch full ledger for wallet %s: %w", walletID, err)
	}
	return entries, nil
}
