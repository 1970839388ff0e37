// internal/domain/negotiation.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// SenderRole identifies which side of the negotiation authored a message.
type SenderRole string

const (
	RoleInvestor SenderRole = "INVESTOR"
	RoleFounder  SenderRole = "FOUNDER"
)

// MessageKind defines the type of a negotiation message.
type MessageKind string

const (
	MessageKindText         MessageKind = "TEXT"
	MessageKindAcceptance   MessageKind = "ACCEPTANCE"
	MessageKindRejection    MessageKind = "REJECTION"
	MessageKindCounterOffer MessageKind = "COUNTER_OFFER"
)

// Structural reports whether the kind mirrors a state-machine transition.
// Structural messages may only be appended by the commitment engine itself,
// never posted directly by a client, so the transcript cannot diverge from
// the commitment state.
func (k MessageKind) Structural() bool {
	return k != MessageKindText
}

// NegotiationMessage is one entry of the append-only transcript attached to a
// commitment, ordered by CreatedAt.
type NegotiationMessage struct {
	ID           string      `db:"id" json:"id"`
	CommitmentID string      `db:"commitment_id" json:"commitment_id"`
	SenderID     string      `db:"sender_id" json:"sender_id"`
	SenderRole   SenderRole  `db:"sender_role" json:"sender_role"`
	Kind         MessageKind `db:"kind" json:"kind"`
	Body         string      `db:"body" json:"body"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
}

// NewNegotiationMessage creates a transcript message.
func NewNegotiationMessage(commitmentID, senderID string, role SenderRole, kind MessageKind, body string) *NegotiationMessage {
	return &NegotiationMessage{
		ID:           uuid.New().String(),
		CommitmentID: commitmentID,
		SenderID:     senderID,
		SenderRole:   role,
		Kind:         kind,
		Body:         body,
		CreatedAt:    time.Now().UTC(),
	}
}
