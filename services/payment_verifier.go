package services

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/lachong-dev/agiletech_backend/models"
)

// PaymentVerifier decides whether a submitted bank transfer is accepted.
// The returned proof carries the approver identity and timestamps; the
// caller embeds it into the proposal and mirrors it into the ledger.
type PaymentVerifier interface {
	VerifyDeposit(ctx context.Context, proposal *models.Proposal, actor models.Actor) (models.PaymentProof, error)
	VerifyPhase(ctx context.Context, proposal *models.Proposal, phaseIndex int, actor models.Actor) (models.PaymentProof, error)
}

// AutoApproveVerifier approves every submission immediately. It stands in
// for a bank gateway webhook until SePay integration lands; proofs it
// produces are flagged autoApproved so they can be reconciled later.
type AutoApproveVerifier struct {
	isTesting bool
}

// NewAutoApproveVerifier reads PAYMENT_ENV for parity with the gateway
// configuration that will replace it.
func NewAutoApproveVerifier() *AutoApproveVerifier {
	paymentEnv := os.Getenv("PAYMENT_ENV")
	isTesting := paymentEnv == "testing"

	log.Printf("Payment Verifier Configuration:")
	log.Printf("  Mode: auto-approve (gateway integration pending)")
	log.Printf("  Environment: %s", map[bool]string{true: "testing", false: "production"}[isTesting])

	return &AutoApproveVerifier{isTesting: isTesting}
}

func (v *AutoApproveVerifier) VerifyDeposit(ctx context.Context, proposal *models.Proposal, actor models.Actor) (models.PaymentProof, error) {
	now := time.Now()
	proof := models.PaymentProof{
		Reference:      uuid.NewString(),
		SubmittedBy:    actor.ID,
		SubmittedAt:    now,
		ApprovedBy:     actor.ID,
		ApprovedByName: actor.FullName,
		ApprovedAt:     now,
		Amount:         proposal.DepositAmount,
		Status:         "completed",
		AutoApproved:   true,
	}

	if v.isTesting {
		log.Printf("Auto-approved deposit payment: proposal=%s amount=%d ref=%s",
			proposal.ID.Hex(), proof.Amount, proof.Reference)
	}

	return proof, nil
}

func (v *AutoApproveVerifier) VerifyPhase(ctx context.Context, proposal *models.Proposal, phaseIndex int, actor models.Actor) (models.PaymentProof, error) {
	now := time.Now()
	phase := proposal.Phases[phaseIndex]
	proof := models.PaymentProof{
		Reference:      uuid.NewString(),
		SubmittedBy:    actor.ID,
		SubmittedAt:    now,
		ApprovedBy:     actor.ID,
		ApprovedByName: actor.FullName,
		ApprovedAt:     now,
		Amount:         phase.Amount,
		PhaseName:      phase.Name,
		Status:         "completed",
		AutoApproved:   true,
	}

	if v.isTesting {
		log.Printf("Auto-approved phase payment: proposal=%s phase=%d amount=%d ref=%s",
			proposal.ID.Hex(), phaseIndex, proof.Amount, proof.Reference)
	}

	return proof, nil
}
