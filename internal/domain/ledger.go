// internal/domain/ledger.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal" // For precise monetary calculations
)

// EntryKind defines the type of a ledger entry.
type EntryKind string

const (
	EntryKindDeposit       EntryKind = "DEPOSIT"
	EntryKindInvestment    EntryKind = "INVESTMENT"
	EntryKindDisinvestment EntryKind = "DISINVESTMENT"
	EntryKindFeeSettlement EntryKind = "FEE_SETTLEMENT"
)

// LedgerEntry is an immutable record of a single wallet balance change.
//
// Entries are append-only and never updated or deleted. BalanceAfter holds the
// wallet balance immediately after the entry was applied, so the full ledger
// can be replayed from zero to reconstruct (and audit) the stored balance.
// A (ReferenceID, Kind) pair is unique, which makes settlement retries
// idempotent.
type LedgerEntry struct {
	ID           string          `db:"id" json:"id"`
	Seq          int64           `db:"seq" json:"seq"` // Monotonic insertion order, assigned by the database
	WalletID     string          `db:"wallet_id" json:"wallet_id"`
	InvestorID   string          `db:"investor_id" json:"investor_id"`
	Kind         EntryKind       `db:"kind" json:"kind"`
	Amount       decimal.Decimal `db:"amount" json:"amount"` // Always positive; Kind decides the direction
	BalanceAfter decimal.Decimal `db:"balance_after" json:"balance_after"`
	ReferenceID  string          `db:"reference_id" json:"reference_id"` // Commitment or deposit transaction this entry settles
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// NewLedgerEntry creates a ledger entry for the given wallet mutation.
func NewLedgerEntry(wallet *Wallet, kind EntryKind, amount, balanceAfter decimal.Decimal, referenceID string) *LedgerEntry {
	return &LedgerEntry{
		ID:           uuid.New().String(),
		WalletID:     wallet.ID,
		InvestorID:   wallet.InvestorID,
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		ReferenceID:  referenceID,
		CreatedAt:    time.Now().UTC(),
	}
}

// Apply returns the balance produced by applying this entry to the given
// balance. Deposits and disinvestments credit, investments debit, and fee
// settlements are balance-neutral bookkeeping records.
func (e *LedgerEntry) Apply(balance decimal.Decimal) decimal.Decimal {
	switch e.Kind {
	case EntryKindDeposit, EntryKindDisinvestment:
		return balance.Add(e.Amount)
	case EntryKindInvestment:
		return balance.Sub(e.Amount)
	case EntryKindFeeSettlement:
		return balance
	default:
		return balance
	}
}

// Replay folds the entries, in insertion order, over a zero balance.
func Replay(entries []LedgerEntry) decimal.Decimal {
	balance := decimal.Zero
	for i := range entries {
		balance = entries[i].Apply(balance)
	}
	return balance
}
