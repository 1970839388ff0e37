// internal/domain/commitment.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"investflow-core/internal/util"
)

// CommitmentStatus defines the lifecycle state of an investment commitment.
type CommitmentStatus string

const (
	StatusPending            CommitmentStatus = "PENDING"
	StatusNegotiating        CommitmentStatus = "NEGOTIATING"
	StatusAgreed             CommitmentStatus = "AGREED"
	StatusRejectedByFounder  CommitmentStatus = "REJECTED_BY_FOUNDER"
	StatusRejectedByInvestor CommitmentStatus = "REJECTED_BY_INVESTOR"
	StatusCancelled          CommitmentStatus = "CANCELLED"
	StatusDealSigned         CommitmentStatus = "DEAL_SIGNED"
)

// Terminal reports whether no further negotiation action is possible from s.
// Rejected states are terminal for negotiation but still allow disinvestment.
func (s CommitmentStatus) Terminal() bool {
	switch s {
	case StatusAgreed, StatusRejectedByFounder, StatusRejectedByInvestor, StatusCancelled, StatusDealSigned:
		return true
	}
	return false
}

// ResponseAction is a party's move in the negotiation.
type ResponseAction string

const (
	ActionAccept  ResponseAction = "ACCEPT"
	ActionReject  ResponseAction = "REJECT"
	ActionCounter ResponseAction = "COUNTER"
)

// Founder response markers persisted on the commitment.
const (
	FounderResponseAccepted  = "ACCEPTED"
	FounderResponseRejected  = "REJECTED"
	FounderResponseCountered = "COUNTERED"
)

// Commitment is an investor's offer of capital for equity in a project.
//
// It is created only after the wallet reservation succeeds, and is never
// deleted: terminal states are retained for audit.
type Commitment struct {
	ID                        string           `db:"id" json:"id"`
	ProjectID                 string           `db:"project_id" json:"project_id"`
	InvestorID                string           `db:"investor_id" json:"investor_id"`
	Amount                    decimal.Decimal  `db:"amount" json:"amount"`
	PlatformFeeRate           decimal.Decimal  `db:"platform_fee_rate" json:"platform_fee_rate"` // Fixed at creation
	PlatformFee               decimal.Decimal  `db:"platform_fee" json:"platform_fee"`
	NetAmount                 decimal.Decimal  `db:"net_amount" json:"net_amount"`
	EquityPercentageRequested decimal.Decimal  `db:"equity_percentage_requested" json:"equity_percentage_requested"`
	PlatformEquityRate        decimal.Decimal  `db:"platform_equity_rate" json:"platform_equity_rate"` // Fixed at creation
	Status                    CommitmentStatus `db:"status" json:"status"`
	FounderResponse           *string          `db:"founder_response" json:"founder_response"`
	CounterAmount             *decimal.Decimal `db:"counter_amount" json:"counter_amount"`
	CounterEquityPercentage   *decimal.Decimal `db:"counter_equity_percentage" json:"counter_equity_percentage"`
	DealAgreed                bool             `db:"deal_agreed" json:"deal_agreed"`
	FinalAmount               *decimal.Decimal `db:"final_amount" json:"final_amount"`                       // Write-once on agreement
	FinalEquityPercentage     *decimal.Decimal `db:"final_equity_percentage" json:"final_equity_percentage"` // Write-once on agreement
	CreatedAt                 time.Time        `db:"created_at" json:"created_at"`
	RespondedAt               *time.Time       `db:"responded_at" json:"responded_at"`
	AgreedAt                  *time.Time       `db:"agreed_at" json:"agreed_at"`
	UpdatedAt                 time.Time        `db:"updated_at" json:"updated_at"`
}

// ValidateTerms checks commitment terms against the platform constraints.
func ValidateTerms(amount, equityPct, minimumCommitment, platformEquityRate decimal.Decimal) error {
	if amount.LessThan(minimumCommitment) {
		return util.ErrInvalidTerms
	}
	if equityPct.LessThanOrEqual(decimal.Zero) {
		return util.ErrInvalidTerms
	}
	if equityPct.Add(platformEquityRate).GreaterThan(decimal.NewFromInt(100)) {
		return util.ErrInvalidTerms
	}
	return nil
}

// NewCommitment creates a Pending commitment. Fee and net amount are computed
// once from the original offer; an accepted counter-offer recomputes them.
func NewCommitment(investorID, projectID string, amount, equityPct, feeRate, platformEquityRate decimal.Decimal) *Commitment {
	now := time.Now().UTC()
	fee := amount.Mul(feeRate).Round(4)
	return &Commitment{
		ID:                        uuid.New().String(),
		ProjectID:                 projectID,
		InvestorID:                investorID,
		Amount:                    amount,
		PlatformFeeRate:           feeRate,
		PlatformFee:               fee,
		NetAmount:                 amount.Sub(fee),
		EquityPercentageRequested: equityPct,
		PlatformEquityRate:        platformEquityRate,
		Status:                    StatusPending,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
}

// StandingOffer returns the currently negotiated amount and equity: the latest
// counter-offer if one exists, otherwise the original terms.
func (c *Commitment) StandingOffer() (amount, equityPct decimal.Decimal) {
	if c.CounterAmount != nil && c.CounterEquityPercentage != nil {
		return *c.CounterAmount, *c.CounterEquityPercentage
	}
	return c.Amount, c.EquityPercentageRequested
}

// canRespond is the closed transition table for negotiation responses.
//
//	Pending     + founder  -> accept | reject | counter
//	Negotiating + investor -> accept | reject | counter
//	Negotiating + founder  -> counter (counter again)
func (c *Commitment) canRespond(role SenderRole, action ResponseAction) bool {
	switch c.Status {
	case StatusPending:
		return role == RoleFounder
	case StatusNegotiating:
		if role == RoleInvestor {
			return true
		}
		return role == RoleFounder && action == ActionCounter
	}
	return false
}

// ApplyAccept transitions the commitment to Agreed, fixing the final terms
// from the standing offer. If the accepted amount differs from the original
// offer, fee and net amount are recomputed from the final amount.
func (c *Commitment) ApplyAccept(role SenderRole, now time.Time) error {
	if !c.canRespond(role, ActionAccept) {
		return util.ErrInvalidTransition
	}
	finalAmount, finalEquity := c.StandingOffer()
	c.Status = StatusAgreed
	c.DealAgreed = true
	c.FinalAmount = &finalAmount
	c.FinalEquityPercentage = &finalEquity
	if !finalAmount.Equal(c.Amount) {
		c.PlatformFee = finalAmount.Mul(c.PlatformFeeRate).Round(4)
		c.NetAmount = finalAmount.Sub(c.PlatformFee)
	}
	c.AgreedAt = &now
	c.RespondedAt = &now
	c.UpdatedAt = now
	if role == RoleFounder {
		response := FounderResponseAccepted
		c.FounderResponse = &response
	}
	return nil
}

// ApplyReject transitions the commitment to the acting party's terminal
// rejected state. Reserved funds are not released here; the investor must
// disinvest explicitly.
func (c *Commitment) ApplyReject(role SenderRole, now time.Time) error {
	if !c.canRespond(role, ActionReject) {
		return util.ErrInvalidTransition
	}
	if role == RoleFounder {
		c.Status = StatusRejectedByFounder
		response := FounderResponseRejected
		c.FounderResponse = &response
	} else {
		c.Status = StatusRejectedByInvestor
	}
	c.RespondedAt = &now
	c.UpdatedAt = now
	return nil
}

// ApplyCounter records a counter-offer, overwriting any previous counter, and
// moves (or keeps) the commitment in Negotiating.
func (c *Commitment) ApplyCounter(role SenderRole, amount, equityPct decimal.Decimal, now time.Time) error {
	if !c.canRespond(role, ActionCounter) {
		return util.ErrInvalidTransition
	}
	c.Status = StatusNegotiating
	c.CounterAmount = &amount
	c.CounterEquityPercentage = &equityPct
	if role == RoleFounder {
		response := FounderResponseCountered
		c.FounderResponse = &response
	}
	c.RespondedAt = &now
	c.UpdatedAt = now
	return nil
}

// ApplyDisinvest cancels a not-yet-agreed commitment. Legal from Pending,
// Negotiating and both rejected states.
func (c *Commitment) ApplyDisinvest(now time.Time) error {
	if c.DealAgreed {
		return util.ErrInvalidTransition
	}
	switch c.Status {
	case StatusPending, StatusNegotiating, StatusRejectedByFounder, StatusRejectedByInvestor:
		c.Status = StatusCancelled
		c.UpdatedAt = now
		return nil
	}
	return util.ErrInvalidTransition
}

// ApplySigned records the external settlement event on an agreed deal.
func (c *Commitment) ApplySigned(now time.Time) error {
	if c.Status != StatusAgreed {
		return util.ErrInvalidTransition
	}
	c.Status = StatusDealSigned
	c.UpdatedAt = now
	return nil
}
