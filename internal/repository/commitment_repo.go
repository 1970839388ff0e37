// internal/repository/commitment_repo.go
package repository

import (
	"context"

	"investflow-core/internal/domain"
)

// CommitmentRepository defines the interface for commitment data operations.
// Commitments are never deleted; terminal states are retained for audit.
type CommitmentRepository interface {
	// CreateCommitment inserts a new commitment row.
	CreateCommitment(ctx context.Context, q DBExecutor, commitment *domain.Commitment) error
	// GetCommitmentByID retrieves a commitment.
	GetCommitmentByID(ctx context.Context, q DBExecutor, id string) (*domain.Commitment, error)
	// GetCommitmentByIDForUpdate retrieves a commitment with a row lock; must
	// be called inside a transaction.
	GetCommitmentByIDForUpdate(ctx context.Context, q DBExecutor, id string) (*domain.Commitment, error)
	// UpdateCommitment persists the mutable negotiation fields.
	UpdateCommitment(ctx context.Context, q DBExecutor, commitment *domain.Commitment) error
	// ListCommitmentsByInvestorID retrieves a page of an investor's
	// commitments, newest first, plus the total count.
	ListCommitmentsByInvestorID(ctx context.Context, q DBExecutor, investorID string, limit, offset int) ([]domain.Commitment, int64, error)
}
