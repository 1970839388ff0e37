// internal/repository/postgres/negotiation_pg.go
package postgres

import (
	"context"
	"fmt"

	"investflow-core/internal/domain"
	"investflow-core/internal/repository"

	"github.com/jmoiron/sqlx"
)

// NegotiationRepository implements repository.NegotiationRepository for PostgreSQL.
type NegotiationRepository struct{}

// NewNegotiationRepository creates a new NegotiationRepository.
func NewNegotiationRepository(db *sqlx.DB) repository.NegotiationRepository {
	return &NegotiationRepository{}
}

// AppendMessage inserts a transcript message using the provided DBExecutor.
func (r *NegotiationRepository) AppendMessage(ctx context.Context, q repository.DBExecutor, m *domain.NegotiationMessage) error {
	query := `INSERT INTO negotiation_messages (id, commitment_id, sender_id, sender_role, kind, body, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := q.ExecContext(ctx, query, m.ID, m.CommitmentID, m.SenderID, m.SenderRole, m.Kind, m.Body, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append message to commitment %s: %w", m.CommitmentID, err)
	}
	return nil
}

// ListMessagesByCommitmentID retrieves a page of transcript messages in
// creation order ascending, plus the total count. Offset pagination keeps the
// sequence restartable for readers.
func (r *NegotiationRepository) ListMessagesByCommitmentID(ctx context.Context, q repository.DBExecutor, commitmentID string, limit, offset int) ([]domain.NegotiationMessage, int64, error) {
	messages := []domain.NegotiationMessage{}

	query := `SELECT id, commitment_id, sender_id, sender_role, kind, body, created_at
              FROM negotiation_messages
              WHERE commitment_id = $1
              ORDER BY created_at ASC, id ASC
              LIMIT $2 OFFSET $3`
	if err := q.SelectContext(ctx, &messages, query, commitmentID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to fetch messages for commitment %s: %w", commitmentID, err)
	}

	var totalCount int64
	countQuery := `SELECT COUNT(*) FROM negotiation_messages WHERE commitment_id = $1`
	if err := q.GetContext(ctx, &totalCount, countQuery, commitmentID); err != nil {
		return nil, 0, fmt.Errorf("failed to count messages for commitment %s: %w", commitmentID, err)
	}

	return messages, totalCount, nil
}
