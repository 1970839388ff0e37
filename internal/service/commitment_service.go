// internal/service/commitment_service.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"investflow-core/internal/config"
	"investflow-core/internal/domain"
	"investflow-core/internal/repository"
	"investflow-core/internal/util"
	"investflow-core/pkg/db"

	"github.com/shopspring/decimal"
)

// RespondPayload carries the optional fields of a negotiation response.
// Counter terms are required for ActionCounter and ignored otherwise.
type RespondPayload struct {
	CounterAmount           *decimal.Decimal
	CounterEquityPercentage *decimal.Decimal
	Message                 string
}

// CommitmentService is the commitment engine: it drives the negotiation state
// machine and is the only writer of structural transcript messages and of
// wallet reservations tied to commitments.
type CommitmentService interface {
	// CreateCommitment reserves funds and persists a Pending commitment as one
	// logical operation; a failed reservation writes no commitment row.
	CreateCommitment(ctx context.Context, investorID, projectID string, amount, equityPct decimal.Decimal, message string) (*domain.Commitment, error)
	GetCommitment(ctx context.Context, commitmentID string) (*domain.Commitment, error)
	ListCommitments(ctx context.Context, investorID string, limit, offset int) ([]domain.Commitment, int64, error)
	// Respond applies a party's accept, reject or counter to the negotiation.
	Respond(ctx context.Context, commitmentID, actorID string, role domain.SenderRole, action domain.ResponseAction, payload RespondPayload) (*domain.Commitment, error)
	// Disinvest cancels a not-yet-agreed commitment and returns the reserved
	// funds to the investor's wallet.
	Disinvest(ctx context.Context, commitmentID, investorID string) (*domain.Commitment, error)
	// MarkSigned records the external settlement event on an agreed deal.
	MarkSigned(ctx context.Context, commitmentID string) (*domain.Commitment, error)
	// PostMessage appends a plain text message to the transcript. Structural
	// kinds are reserved for the engine itself.
	PostMessage(ctx context.Context, commitmentID, senderID string, role domain.SenderRole, body string) (*domain.NegotiationMessage, error)
	ListMessages(ctx context.Context, commitmentID string, limit, offset int) ([]domain.NegotiationMessage, int64, error)
}

// commitmentService implements the CommitmentService interface.
type commitmentService struct {
	dbBeginner     db.DBTxBeginner
	dbExecutor     repository.DBExecutor
	walletRepo     repository.WalletRepository
	ledgerRepo     repository.LedgerRepository
	commitmentRepo repository.CommitmentRepository
	messageRepo    repository.NegotiationRepository
	projects       ProjectRegistry
	platform       config.PlatformConfig
	beginTx        db.BeginTxFunc
	commitTx       db.CommitTxFunc
	rollbackTx     db.RollbackTxFunc
	logger         *slog.Logger
}

// NewCommitmentService creates a new instance of CommitmentService.
func NewCommitmentService(
	dbBeginner db.DBTxBeginner,
	dbExecutor repository.DBExecutor,
	walletRepo repository.WalletRepository,
	ledgerRepo repository.LedgerRepository,
	commitmentRepo repository.CommitmentRepository,
	messageRepo repository.NegotiationRepository,
	projects ProjectRegistry,
	platform config.PlatformConfig,
	beginTx db.BeginTxFunc,
	commitTx db.CommitTxFunc,
	rollbackTx db.RollbackTxFunc,
	logger *slog.Logger,
) CommitmentService {
	return &commitmentService{
		dbBeginner:     dbBeginner,
		dbExecutor:     dbExecutor,
		walletRepo:     walletRepo,
		ledgerRepo:     ledgerRepo,
		commitmentRepo: commitmentRepo,
		messageRepo:    messageRepo,
		projects:       projects,
		platform:       platform,
		beginTx:        beginTx,
		commitTx:       commitTx,
		rollbackTx:     rollbackTx,
		logger:         logger,
	}
}

// CreateCommitment validates terms, reserves the amount from the investor's
// wallet and persists the Pending commitment plus the opening transcript
// message, all in one transaction.
func (s *commitmentService) CreateCommitment(ctx context.Context, investorID, projectID string, amount, equityPct decimal.Decimal, message string) (*domain.Commitment, error) {
	if investorID == "" || projectID == "" {
		return nil, util.ErrInvalidInput
	}
	if err := domain.ValidateTerms(amount, equityPct, s.platform.MinimumCommitment, s.platform.PlatformEquityRate); err != nil {
		return nil, err
	}
	if _, err := s.projects.ResolveFounder(ctx, projectID); err != nil {
		return nil, fmt.Errorf("create commitment: project %s: %w", projectID, util.ErrNotFound)
	}

	commitment := domain.NewCommitment(investorID, projectID, amount, equityPct, s.platform.PlatformFeeRate, s.platform.PlatformEquityRate)

	err := runInTxWithRetry(ctx, s.dbBeginner, s.beginTx, s.commitTx, s.rollbackTx, func(q repository.DBExecutor) error {
		wallet, err := s.walletRepo.GetWalletByInvestorIDForUpdate(ctx, q, investorID)
		if err != nil {
			return fmt.Errorf("create commitment: %w", err)
		}
		if _, err := debitWallet(ctx, q, s.walletRepo, s.ledgerRepo, wallet, amount, commitment.ID); err != nil {
			return fmt.Errorf("create commitment: %w", err)
		}
		if err := s.commitmentRepo.CreateCommitment(ctx, q, commitment); err != nil {
			return err
		}
		opening := domain.NewNegotiationMessage(commitment.ID, investorID, domain.RoleInvestor, domain.MessageKindText, message)
		if err := s.messageRepo.AppendMessage(ctx, q, opening); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("commitment created",
		"commitment_id", commitment.ID,
		"investor_id", investorID,
		"project_id", projectID,
		"amount", amount.String(),
	)
	return commitment, nil
}

// GetCommitment retrieves a commitment by id.
func (s *commitmentService) GetCommitment(ctx context.Context, commitmentID string) (*domain.Commitment, error) {
	return s.commitmentRepo.GetCommitmentByID(ctx, s.dbExecutor, commitmentID)
}

// ListCommitments retrieves a page of an investor's commitments.
func (s *commitmentService) ListCommitments(ctx context.Context, investorID string, limit, offset int) ([]domain.Commitment, int64, error) {
	return s.commitmentRepo.ListCommitmentsByInvestorID(ctx, s.dbExecutor, investorID, limit, offset)
}

// Respond applies a negotiation action under the commitment row lock, so a
// concurrent respond or disinvest on the same commitment cannot both succeed.
func (s *commitmentService) Respond(ctx context.Context, commitmentID, actorID string, role domain.SenderRole, action domain.ResponseAction, payload RespondPayload) (*domain.Commitment, error) {
	var commitment *domain.Commitment
	err := runInTxWithRetry(ctx, s.dbBeginner, s.beginTx, s.commitTx, s.rollbackTx, func(q repository.DBExecutor) error {
		var err error
		commitment, err = s.commitmentRepo.GetCommitmentByIDForUpdate(ctx, q, commitmentID)
		if err != nil {
			return err
		}
		if err := s.authorizeActor(ctx, commitment, actorID, role); err != nil {
			return err
		}

		now := time.Now().UTC()
		switch action {
		case domain.ActionAccept:
			if err := s.applyAccept(ctx, q, commitment, role, now); err != nil {
				return err
			}
		case domain.ActionReject:
			if err := commitment.ApplyReject(role, now); err != nil {
				return err
			}
		case domain.ActionCounter:
			if payload.CounterAmount == nil || payload.CounterEquityPercentage == nil {
				return util.ErrInvalidInput
			}
			if err := domain.ValidateTerms(*payload.CounterAmount, *payload.CounterEquityPercentage, s.platform.MinimumCommitment, commitment.PlatformEquityRate); err != nil {
				return err
			}
			if err := commitment.ApplyCounter(role, *payload.CounterAmount, *payload.CounterEquityPercentage, now); err != nil {
				return err
			}
		default:
			return util.ErrInvalidInput
		}

		if err := s.commitmentRepo.UpdateCommitment(ctx, q, commitment); err != nil {
			return err
		}

		transcript := domain.NewNegotiationMessage(commitment.ID, actorID, role, messageKindFor(action), payload.Message)
		if err := s.messageRepo.AppendMessage(ctx, q, transcript); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return commitment, nil
}

// applyAccept runs the domain transition plus the reservation reconciliation:
// when the accepted amount differs from the originally reserved amount, the
// difference is released back to the wallet or additionally reserved.
func (s *commitmentService) applyAccept(ctx context.Context, q repository.DBExecutor, commitment *domain.Commitment, role domain.SenderRole, now time.Time) error {
	reserved := commitment.Amount
	if err := commitment.ApplyAccept(role, now); err != nil {
		return err
	}

	finalAmount := *commitment.FinalAmount
	if finalAmount.Equal(reserved) {
		return nil
	}

	wallet, err := s.walletRepo.GetWalletByInvestorIDForUpdate(ctx, q, commitment.InvestorID)
	if err != nil {
		return fmt.Errorf("accept reconciliation: %w", err)
	}
	reconcileRef := commitment.ID + ":reconcile"
	if finalAmount.LessThan(reserved) {
		delta := reserved.Sub(finalAmount)
		if _, err := creditWallet(ctx, q, s.walletRepo, s.ledgerRepo, wallet, domain.EntryKindDisinvestment, delta, reconcileRef); err != nil {
			return fmt.Errorf("accept reconciliation: %w", err)
		}
	} else {
		delta := finalAmount.Sub(reserved)
		if _, err := debitWallet(ctx, q, s.walletRepo, s.ledgerRepo, wallet, delta, reconcileRef); err != nil {
			return fmt.Errorf("accept reconciliation: %w", err)
		}
	}
	return nil
}

// Disinvest cancels the commitment and releases the reserved funds. Lock
// order is commitment first, wallet second, matching Respond.
func (s *commitmentService) Disinvest(ctx context.Context, commitmentID, investorID string) (*domain.Commitment, error) {
	var commitment *domain.Commitment
	err := runInTxWithRetry(ctx, s.dbBeginner, s.beginTx, s.commitTx, s.rollbackTx, func(q repository.DBExecutor) error {
		var err error
		commitment, err = s.commitmentRepo.GetCommitmentByIDForUpdate(ctx, q, commitmentID)
		if err != nil {
			return err
		}
		if commitment.InvestorID != investorID {
			return util.ErrCommitmentNotFound
		}

		now := time.Now().UTC()
		if err := commitment.ApplyDisinvest(now); err != nil {
			return err
		}

		wallet, err := s.walletRepo.GetWalletByInvestorIDForUpdate(ctx, q, investorID)
		if err != nil {
			return fmt.Errorf("disinvest: %w", err)
		}
		if _, err := creditWallet(ctx, q, s.walletRepo, s.ledgerRepo, wallet, domain.EntryKindDisinvestment, commitment.Amount, commitment.ID); err != nil {
			return fmt.Errorf("disinvest: %w", err)
		}

		if err := s.commitmentRepo.UpdateCommitment(ctx, q, commitment); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("commitment disinvested", "commitment_id", commitmentID, "investor_id", investorID)
	return commitment, nil
}

// MarkSigned transitions an agreed deal to DealSigned and writes the
// balance-neutral fee settlement ledger entry. Physical payout to the founder
// is the settlement collaborator's job.
func (s *commitmentService) MarkSigned(ctx context.Context, commitmentID string) (*domain.Commitment, error) {
	var commitment *domain.Commitment
	err := runInTxWithRetry(ctx, s.dbBeginner, s.beginTx, s.commitTx, s.rollbackTx, func(q repository.DBExecutor) error {
		var err error
		commitment, err = s.commitmentRepo.GetCommitmentByIDForUpdate(ctx, q, commitmentID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := commitment.ApplySigned(now); err != nil {
			return err
		}

		if commitment.PlatformFee.GreaterThan(decimal.Zero) {
			wallet, err := s.walletRepo.GetWalletByInvestorIDForUpdate(ctx, q, commitment.InvestorID)
			if err != nil {
				return fmt.Errorf("mark signed: %w", err)
			}
			entry := domain.NewLedgerEntry(wallet, domain.EntryKindFeeSettlement, commitment.PlatformFee, wallet.Balance, commitment.ID)
			if err := s.ledgerRepo.AppendEntry(ctx, q, entry); err != nil {
				return fmt.Errorf("mark signed: %w", err)
			}
		}

		if err := s.commitmentRepo.UpdateCommitment(ctx, q, commitment); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("commitment signed", "commitment_id", commitmentID)
	return commitment, nil
}

// PostMessage appends a client text message to the transcript.
func (s *commitmentService) PostMessage(ctx context.Context, commitmentID, senderID string, role domain.SenderRole, body string) (*domain.NegotiationMessage, error) {
	if senderID == "" || body == "" {
		return nil, util.ErrInvalidInput
	}
	commitment, err := s.commitmentRepo.GetCommitmentByID(ctx, s.dbExecutor, commitmentID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeActor(ctx, commitment, senderID, role); err != nil {
		return nil, err
	}

	message := domain.NewNegotiationMessage(commitmentID, senderID, role, domain.MessageKindText, body)
	if err := s.messageRepo.AppendMessage(ctx, s.dbExecutor, message); err != nil {
		return nil, err
	}
	return message, nil
}

// ListMessages returns a page of the transcript in creation order ascending.
func (s *commitmentService) ListMessages(ctx context.Context, commitmentID string, limit, offset int) ([]domain.NegotiationMessage, int64, error) {
	if _, err := s.commitmentRepo.GetCommitmentByID(ctx, s.dbExecutor, commitmentID); err != nil {
		return nil, 0, err
	}
	return s.messageRepo.ListMessagesByCommitmentID(ctx, s.dbExecutor, commitmentID, limit, offset)
}

// authorizeActor checks the actor against the commitment's investor or the
// project's founder as resolved by the registry. Identity itself is trusted;
// the auth collaborator already authenticated the caller.
func (s *commitmentService) authorizeActor(ctx context.Context, commitment *domain.Commitment, actorID string, role domain.SenderRole) error {
	switch role {
	case domain.RoleInvestor:
		if commitment.InvestorID != actorID {
			return util.ErrCommitmentNotFound
		}
	case domain.RoleFounder:
		founderID, err := s.projects.ResolveFounder(ctx, commitment.ProjectID)
		if err != nil {
			return fmt.Errorf("resolve founder for project %s: %w", commitment.ProjectID, err)
		}
		if founderID != actorID {
			return util.ErrCommitmentNotFound
		}
	default:
		return util.ErrInvalidInput
	}
	return nil
}

// messageKindFor maps a negotiation action to its structural transcript kind.
func messageKindFor(action domain.ResponseAction) domain.MessageKind {
	switch action {
	case domain.ActionAccept:
		return domain.MessageKindAcceptance
	case domain.ActionReject:
		return domain.MessageKindRejection
	case domain.ActionCounter:
		return domain.MessageKindCounterOffer
	}
	return domain.MessageKindText
}
