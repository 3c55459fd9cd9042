// models/transaction.go
package models

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TransactionType names why money moved.
type TransactionType string

const (
	TransactionDeposit    TransactionType = "deposit"
	TransactionPhase      TransactionType = "phase"
	TransactionRefund     TransactionType = "refund"
	TransactionAdjustment TransactionType = "adjustment"
)

// TransactionStatus lifecycle: pending -> completed/failed/cancelled.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
	TransactionCancelled TransactionStatus = "cancelled"
)

// ValidTransactionType reports whether the raw string is a known type.
func ValidTransactionType(raw string) bool {
	switch TransactionType(raw) {
	case TransactionDeposit, TransactionPhase, TransactionRefund, TransactionAdjustment:
		return true
	}
	return false
}

// Transaction is an append-only ledger entry mirroring one money movement.
// Amount and type are immutable after creation; only the status moves, and
// only out of pending. Entries outlive their project.
type Transaction struct {
	ID          primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	ProjectID   primitive.ObjectID  `json:"projectId" bson:"projectId"`
	ProposalID  *primitive.ObjectID `json:"proposalId,omitempty" bson:"proposalId,omitempty"`
	CustomerID  primitive.ObjectID  `json:"customerId" bson:"customerId"`
	Type        TransactionType     `json:"type" bson:"type"`
	Status      TransactionStatus   `json:"status" bson:"status"`
	Amount      int64               `json:"amount" bson:"amount"`
	PhaseIndex  *int                `json:"phaseIndex,omitempty" bson:"phaseIndex,omitempty"`
	PhaseName   string              `json:"phaseName,omitempty" bson:"phaseName,omitempty"`
	Method      string              `json:"method" bson:"method"`
	Reference   string              `json:"reference" bson:"reference"`
	Description string              `json:"description,omitempty" bson:"description,omitempty"`
	Metadata    map[string]string   `json:"metadata,omitempty" bson:"metadata,omitempty"`
	ProcessedBy *primitive.ObjectID `json:"processedBy,omitempty" bson:"processedBy,omitempty"`
	CreatedAt   time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt" bson:"updatedAt"`
	CompletedAt *time.Time          `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
}

// NewDepositTransaction builds the completed ledger entry for a deposit payment.
func NewDepositTransaction(projectID, proposalID, customerID primitive.ObjectID, amount int64, actor Actor, now time.Time) Transaction {
	t := now
	pid := proposalID
	actorID := actor.ID
	return Transaction{
		ProjectID:   projectID,
		ProposalID:  &pid,
		CustomerID:  customerID,
		Type:        TransactionDeposit,
		Status:      TransactionCompleted,
		Amount:      amount,
		Method:      "bank_transfer",
		Reference:   uuid.NewString(),
		Metadata:    map[string]string{"auto_approved": "true"},
		ProcessedBy: &actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
		CompletedAt: &t,
	}
}

// NewPhaseTransaction builds the completed ledger entry for one phase payment.
func NewPhaseTransaction(projectID, proposalID, customerID primitive.ObjectID, phaseIndex int, phase Phase, actor Actor, now time.Time) Transaction {
	t := now
	pid := proposalID
	idx := phaseIndex
	actorID := actor.ID
	return Transaction{
		ProjectID:   projectID,
		ProposalID:  &pid,
		CustomerID:  customerID,
		Type:        TransactionPhase,
		Status:      TransactionCompleted,
		Amount:      phase.Amount,
		PhaseIndex:  &idx,
		PhaseName:   phase.Name,
		Method:      "bank_transfer",
		Reference:   uuid.NewString(),
		Metadata:    map[string]string{"auto_approved": "true"},
		ProcessedBy: &actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
		CompletedAt: &t,
	}
}

// CanResolve guards the approve/reject operations: only pending entries move.
func (t *Transaction) CanResolve() *APIError {
	if t.Status != TransactionPending {
		return NewStateError("transaction is already %s", t.Status)
	}
	return nil
}
