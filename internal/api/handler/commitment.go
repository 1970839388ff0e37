// internal/api/handler/commitment.go
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"investflow-core/internal/api/types"
	"investflow-core/internal/domain"
	"investflow-core/internal/service"
	"investflow-core/internal/util"
)

// CommitmentHandler handles HTTP requests related to commitments and their
// negotiation transcript.
type CommitmentHandler struct {
	service service.CommitmentService
	logger  *slog.Logger
}

// NewCommitmentHandler creates a new CommitmentHandler.
func NewCommitmentHandler(svc service.CommitmentService, logger *slog.Logger) *CommitmentHandler {
	return &CommitmentHandler{
		service: svc,
		logger:  logger,
	}
}

// CreateCommitmentRequest represents the request body for commitment creation.
type CreateCommitmentRequest struct {
	InvestorID       string          `json:"investor_id"`
	ProjectID        string          `json:"project_id"`
	Amount           decimal.Decimal `json:"amount"`
	EquityPercentage decimal.Decimal `json:"equity_percentage"`
	Message          string          `json:"message"`
}

// Create handles the create commitment request.
// POST /commitments
func (h *CommitmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCommitmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	if req.InvestorID == "" || req.ProjectID == "" {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	commitment, err := h.service.CreateCommitment(r.Context(), req.InvestorID, req.ProjectID, req.Amount, req.EquityPercentage, req.Message)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusCreated, commitment)
}

// Get handles the get commitment request.
// GET /commitments/{commitmentID}
func (h *CommitmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	commitmentID := chi.URLParam(r, "commitmentID")

	commitment, err := h.service.GetCommitment(r.Context(), commitmentID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, commitment)
}

// RespondRequest represents the request body for a negotiation response.
type RespondRequest struct {
	ActorID          string           `json:"actor_id"`
	Role             string           `json:"role"`   // "INVESTOR" or "FOUNDER"
	Action           string           `json:"action"` // "ACCEPT", "REJECT" or "COUNTER"
	CounterAmount    *decimal.Decimal `json:"counter_amount"`
	CounterEquityPct *decimal.Decimal `json:"counter_equity_percentage"`
	Message          string           `json:"message"`
}

// Respond handles a negotiation response.
// POST /commitments/{commitmentID}/respond
func (h *CommitmentHandler) Respond(w http.ResponseWriter, r *http.Request) {
	commitmentID := chi.URLParam(r, "commitmentID")

	var req RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	if req.ActorID == "" {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	commitment, err := h.service.Respond(r.Context(), commitmentID, req.ActorID,
		domain.SenderRole(req.Role), domain.ResponseAction(req.Action),
		service.RespondPayload{
			CounterAmount:           req.CounterAmount,
			CounterEquityPercentage: req.CounterEquityPct,
			Message:                 req.Message,
		})
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, commitment)
}

// DisinvestRequest represents the request body for disinvestment.
type DisinvestRequest struct {
	InvestorID string `json:"investor_id"`
}

// Disinvest handles the investor withdrawing a not-yet-agreed commitment.
// POST /commitments/{commitmentID}/disinvest
func (h *CommitmentHandler) Disinvest(w http.ResponseWriter, r *http.Request) {
	commitmentID := chi.URLParam(r, "commitmentID")

	var req DisinvestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	if req.InvestorID == "" {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	commitment, err := h.service.Disinvest(r.Context(), commitmentID, req.InvestorID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, commitment)
}

// MarkSigned records the external settlement signature event.
// POST /commitments/{commitmentID}/signed
func (h *CommitmentHandler) MarkSigned(w http.ResponseWriter, r *http.Request) {
	commitmentID := chi.URLParam(r, "commitmentID")

	commitment, err := h.service.MarkSigned(r.Context(), commitmentID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, commitment)
}

// PostMessageRequest represents the request body for a transcript message.
// Only plain text can be posted by clients; structural kinds are written by
// the engine as part of Respond.
type PostMessageRequest struct {
	SenderID string `json:"sender_id"`
	Role     string `json:"role"`
	Body     string `json:"body"`
}

// PostMessage appends a text message to the negotiation transcript.
// POST /commitments/{commitmentID}/messages
func (h *CommitmentHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	commitmentID := chi.URLParam(r, "commitmentID")

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	if req.SenderID == "" || req.Body == "" {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	message, err := h.service.PostMessage(r.Context(), commitmentID, req.SenderID, domain.SenderRole(req.Role), req.Body)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusCreated, message)
}

// ListMessages returns a page of the negotiation transcript.
// GET /commitments/{commitmentID}/messages
func (h *CommitmentHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	commitmentID := chi.URLParam(r, "commitmentID")
	limit, offset := pagination(r)

	messages, totalCount, err := h.service.ListMessages(r.Context(), commitmentID, limit, offset)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, types.PaginatedResponse[domain.NegotiationMessage]{
		Data:       messages,
		Limit:      limit,
		Offset:     offset,
		TotalCount: totalCount,
	})
}
