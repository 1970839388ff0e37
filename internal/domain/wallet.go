// internal/domain/wallet.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal" // For precise monetary calculations
)

// Wallet represents an investor's custodial wallet.
//
// The balance is never assigned directly by callers: every change goes through
// a ledger-backed mutation that also bumps the running totals and the version
// counter. At every committed state:
//
//	Balance == TotalDeposited - TotalInvested + TotalDisinvested
type Wallet struct {
	ID               string          `db:"id" json:"id"`
	InvestorID       string          `db:"investor_id" json:"investor_id"` // Supplied by the identity collaborator, unique per wallet
	Balance          decimal.Decimal `db:"balance" json:"balance"`         // Current balance, NUMERIC(20, 4) in DB, >= 0
	TotalDeposited   decimal.Decimal `db:"total_deposited" json:"total_deposited"`
	TotalInvested    decimal.Decimal `db:"total_invested" json:"total_invested"`
	TotalDisinvested decimal.Decimal `db:"total_disinvested" json:"total_disinvested"`
	Version          int64           `db:"version" json:"version"` // Optimistic counter, bumped on every mutation
	Frozen           bool            `db:"frozen" json:"frozen"`   // Set on ledger integrity violation; blocks mutations
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// NewWallet creates a new Wallet instance for the given investor.
func NewWallet(investorID string) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		ID:               uuid.New().String(),
		InvestorID:       investorID,
		Balance:          decimal.Zero,
		TotalDeposited:   decimal.Zero,
		TotalInvested:    decimal.Zero,
		TotalDisinvested: decimal.Zero,
		Version:          0,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Consistent reports whether the balance matches the running totals.
func (w *Wallet) Consistent() bool {
	expected := w.TotalDeposited.Sub(w.TotalInvested).Add(w.TotalDisinvested)
	return w.Balance.Equal(expected)
}
