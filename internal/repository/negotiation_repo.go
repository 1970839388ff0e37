// internal/repository/negotiation_repo.go
package repository

import (
	"context"

	"investflow-core/internal/domain"
)

// NegotiationRepository defines the interface for the append-only transcript.
type NegotiationRepository interface {
	// AppendMessage writes a transcript message.
	AppendMessage(ctx context.Context, q DBExecutor, message *domain.NegotiationMessage) error
	// ListMessagesByCommitmentID retrieves a page of messages for a commitment
	// ordered by creation time ascending, plus the total count.
	ListMessagesByCommitmentID(ctx context.Context, q DBExecutor, commitmentID string, limit, offset int) ([]domain.NegotiationMessage, int64, error)
}
