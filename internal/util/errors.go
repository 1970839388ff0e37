// internal/util/errors.go
package util

import "errors"

// Common application-specific errors.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input provided")
	ErrInvalidTerms       = errors.New("invalid commitment terms")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrConflict           = errors.New("concurrent modification conflict")
	ErrInvalidTransition  = errors.New("invalid commitment state transition")
	ErrDuplicateReference = errors.New("duplicate ledger reference")
	ErrWalletNotFound     = errors.New("wallet not found")
	ErrWalletFrozen       = errors.New("wallet frozen pending integrity review")
	ErrLedgerIntegrity    = errors.New("ledger integrity violation")
	ErrCommitmentNotFound = errors.New("commitment not found")
)

// IsError reports whether err wraps target.
func IsError(err, target error) bool {
	return errors.Is(err, target)
}
