// internal/repository/postgres/commitment_pg.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"investflow-core/internal/domain"
	"investflow-core/internal/repository"
	"investflow-core/internal/util"

	"github.com/jmoiron/sqlx"
)

// CommitmentRepository implements repository.CommitmentRepository for PostgreSQL.
type CommitmentRepository struct{}

// NewCommitmentRepository creates a new CommitmentRepository.
func NewCommitmentRepository(db *sqlx.DB) repository.CommitmentRepository {
	return &CommitmentRepository{}
}

const commitmentColumns = `id, project_id, investor_id, amount, platform_fee_rate, platform_fee, net_amount,
       equity_percentage_requested, platform_equity_rate, status, founder_response,
       counter_amount, counter_equity_percentage, deal_agreed, final_amount, final_equity_percentage,
       created_at, responded_at, agreed_at, updated_at`

// CreateCommitment inserts a new commitment row using the provided DBExecutor.
func (r *CommitmentRepository) CreateCommitment(ctx context.Context, q repository.DBExecutor, c *domain.Commitment) error {
	query := `INSERT INTO commitments (id, project_id, investor_id, amount, platform_fee_rate, platform_fee, net_amount,
                  equity_percentage_requested, platform_equity_rate, status, founder_response,
                  counter_amount, counter_equity_percentage, deal_agreed, final_amount, final_equity_percentage,
                  created_at, responded_at, agreed_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`
	_, err := q.ExecContext(ctx, query,
		c.ID, c.ProjectID, c.InvestorID, c.Amount, c.PlatformFeeRate, c.PlatformFee, c.NetAmount,
		c.EquityPercentageRequested, c.PlatformEquityRate, c.Status, c.FounderResponse,
		c.CounterAmount, c.CounterEquityPercentage, c.DealAgreed, c.FinalAmount, c.FinalEquityPercentage,
		c.CreatedAt, c.RespondedAt, c.AgreedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create commitment %s: %w", c.ID, err)
	}
	return nil
}

// GetCommitmentByID retrieves a commitment using the provided DBExecutor.
func (r *CommitmentRepository) GetCommitmentByID(ctx context.Context, q repository.DBExecutor, id string) (*domain.Commitment, error) {
	var c domain.Commitment
	query := `SELECT ` + commitmentColumns + ` FROM commitments WHERE id = $1`
	err := q.GetContext(ctx, &c, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrCommitmentNotFound
		}
		return nil, fmt.Errorf("failed to get commitment %s: %w", id, err)
	}
	return &c, nil
}

// GetCommitmentByIDForUpdate retrieves a commitment with a row lock so that a
// concurrent respond and disinvest on the same commitment serialize.
func (r *CommitmentRepository) GetCommitmentByIDForUpdate(ctx context.Context, q repository.DBExecutor, id string) (*domain.Commitment, error) {
	var c domain.Commitment
	query := `SELECT ` + commitmentColumns + ` FROM commitments WHERE id = $1 FOR UPDATE`
	err := q.GetContext(ctx, &c, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrCommitmentNotFound
		}
		return nil, mapLockError("failed to lock commitment "+id, err)
	}
	return &c, nil
}

// UpdateCommitment persists the mutable negotiation fields. Serialization of
// concurrent transitions relies entirely on the caller holding the row lock
// from GetCommitmentByIDForUpdate; a vanished row maps to not-found.
func (r *CommitmentRepository) UpdateCommitment(ctx context.Context, q repository.DBExecutor, c *domain.Commitment) error {
	query := `UPDATE commitments
              SET status = $1, founder_response = $2, counter_amount = $3, counter_equity_percentage = $4,
                  deal_agreed = $5, final_amount = $6, final_equity_percentage = $7,
                  platform_fee = $8, net_amount = $9,
                  responded_at = $10, agreed_at = $11, updated_at = $12
              WHERE id = $13`
	result, err := q.ExecContext(ctx, query,
		c.Status, c.FounderResponse, c.CounterAmount, c.CounterEquityPercentage,
		c.DealAgreed, c.FinalAmount, c.FinalEquityPercentage,
		c.PlatformFee, c.NetAmount,
		c.RespondedAt, c.AgreedAt, c.UpdatedAt,
		c.ID,
	)
	if err != nil {
		return mapLockError("failed to update commitment "+c.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after updating commitment %s: %w", c.ID, err)
	}
	if rowsAffected == 0 {
		return util.ErrCommitmentNotFound
	}
	return nil
}

// ListCommitmentsByInvestorID retrieves a paginated list of an investor's
// commitments, newest first, plus the total count.
func (r *CommitmentRepository) ListCommitmentsByInvestorID(ctx context.Context, q repository.DBExecutor, investorID string, limit, offset int) ([]domain.Commitment, int64, error) {
	commitments := []domain.Commitment{}

	query := `SELECT ` + commitmentColumns + `
              FROM commitments
              WHERE investor_id = $1
              ORDER BY created_at DESC
              LIMIT $2 OFFSET $3`
	if err := q.SelectContext(ctx, &commitments, query, investorID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to fetch commitments for investor %s: %w", investorID, err)
	}

	var totalCount int64
	countQuery := `SELECT COUNT(*) FROM commitments WHERE investor_id = $1`
	if err := q.GetContext(ctx, &totalCount, countQuery, investorID); err != nil {
		return nil, 0, fmt.Errorf("failed to count commitments for investor %s: %w", investorID, err)
	}

	return commitments, totalCount, nil
}
