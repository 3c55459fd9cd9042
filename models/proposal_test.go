package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testProposal(phases ...int64) *Proposal {
	p := &Proposal{
		ID:            primitive.NewObjectID(),
		ProjectID:     primitive.NewObjectID(),
		CreatedBy:     primitive.NewObjectID(),
		DepositAmount: MinDepositAmount,
		Currency:      "VND",
		Status:        ProposalDraft,
	}
	for i, amount := range phases {
		p.Phases = append(p.Phases, Phase{
			Name:   "Phase " + string(rune('A'+i)),
			Amount: amount,
			Days:   10,
		})
	}
	p.RecalculateTotals()
	return p
}

func testProof(amount int64) PaymentProof {
	id := primitive.NewObjectID()
	now := time.Now()
	return PaymentProof{
		Reference:    uuid.NewString(),
		SubmittedBy:  id,
		SubmittedAt:  now,
		ApprovedBy:   id,
		ApprovedAt:   now,
		Amount:       amount,
		Status:       "completed",
		AutoApproved: true,
	}
}

func acceptAndPayDeposit(t *testing.T, p *Proposal) {
	t.Helper()
	p.Status = ProposalSent
	require.Nil(t, p.ApplyAccept("", time.Now()))
	require.Nil(t, p.ApplyDepositPayment(testProof(p.DepositAmount), time.Now()))
}

func TestValidateNew_DepositMinimum(t *testing.T) {
	p := testProposal(1000000)
	p.DepositAmount = MinDepositAmount - 1
	err := p.ValidateNew()
	require.NotNil(t, err)
	assert.Equal(t, CodeValidation, err.Code)

	p.DepositAmount = MinDepositAmount
	assert.Nil(t, p.ValidateNew())
}

func TestRecalculateTotals(t *testing.T) {
	p := testProposal(1000000, 2000000, 500000)
	assert.Equal(t, MinDepositAmount+int64(3500000), p.TotalPrice)
	assert.Equal(t, 30, p.EstimatedDays)
}

func TestApplySend(t *testing.T) {
	p := testProposal(1000000)
	require.Nil(t, p.ApplySend())
	assert.Equal(t, ProposalSent, p.Status)

	err := p.ApplySend()
	require.NotNil(t, err)
	assert.Equal(t, CodeState, err.Code)
}

func TestMarkViewed(t *testing.T) {
	p := testProposal(1000000)
	assert.False(t, p.MarkViewed(), "draft must not become viewed")

	p.Status = ProposalSent
	assert.True(t, p.MarkViewed())
	assert.Equal(t, ProposalViewed, p.Status)
	assert.False(t, p.MarkViewed(), "second read is a no-op")
}

func TestCustomerResponse(t *testing.T) {
	t.Run("accept locks the proposal", func(t *testing.T) {
		p := testProposal(1000000)
		p.Status = ProposalViewed
		require.Nil(t, p.ApplyAccept("looks good", time.Now()))
		assert.Equal(t, ProposalAccepted, p.Status)
		assert.NotNil(t, p.AcceptedAt)

		err := p.ApplyAccept("again", time.Now())
		require.NotNil(t, err)
		assert.Equal(t, CodeState, err.Code)
		assert.NotNil(t, p.EditableByStaff())
	})

	t.Run("reject reopens negotiation", func(t *testing.T) {
		p := testProposal(1000000)
		p.Status = ProposalSent
		require.Nil(t, p.ApplyReject("too expensive", "", time.Now()))
		assert.Equal(t, ProposalNegotiating, p.Status)
		assert.Equal(t, "too expensive", p.RejectionReason)
		assert.Nil(t, p.EditableByStaff(), "staff can keep editing while negotiating")

		// The customer can still accept out of negotiation
		require.Nil(t, p.ApplyAccept("", time.Now()))
		assert.Equal(t, ProposalAccepted, p.Status)
	})
}

func TestDepositPayment(t *testing.T) {
	p := testProposal(1000000)

	err := p.ApplyDepositPayment(testProof(p.DepositAmount), time.Now())
	require.NotNil(t, err, "deposit requires an accepted proposal")
	assert.Equal(t, CodeState, err.Code)

	p.Status = ProposalAccepted
	require.Nil(t, p.ApplyDepositPayment(testProof(p.DepositAmount), time.Now()))
	assert.True(t, p.DepositPaid)
	require.NotNil(t, p.DepositProof)
	assert.True(t, p.DepositProof.AutoApproved)

	err = p.ApplyDepositPayment(testProof(p.DepositAmount), time.Now())
	require.NotNil(t, err, "deposit cannot be paid twice")
	assert.Equal(t, CodeState, err.Code)
}

func TestPhaseOrdering(t *testing.T) {
	p := testProposal(1000000, 2000000)
	actor := Actor{ID: primitive.NewObjectID(), Role: RoleDev}

	err := p.ApplyCompletePhase(0, actor, time.Now())
	require.NotNil(t, err, "phases cannot start before the deposit")

	acceptAndPayDeposit(t, p)

	// Phase 1 cannot complete before phase 0 is paid
	err = p.ApplyCompletePhase(1, actor, time.Now())
	require.NotNil(t, err)
	assert.Equal(t, CodeState, err.Code)

	require.Nil(t, p.ApplyCompletePhase(0, actor, time.Now()))
	assert.True(t, p.Phases[0].Completed)

	// Still blocked: phase 0 is completed but not paid
	err = p.ApplyCompletePhase(1, actor, time.Now())
	require.NotNil(t, err)

	require.Nil(t, p.ApplyPhasePayment(0, testProof(p.Phases[0].Amount), time.Now()))
	require.Nil(t, p.ApplyCompletePhase(1, actor, time.Now()))
}

func TestPhasePayment(t *testing.T) {
	p := testProposal(1000000)
	actor := Actor{ID: primitive.NewObjectID(), Role: RoleDev}
	acceptAndPayDeposit(t, p)

	err := p.ApplyPhasePayment(0, testProof(p.Phases[0].Amount), time.Now())
	require.NotNil(t, err, "payment requires a completed phase")
	assert.Equal(t, CodeState, err.Code)

	require.Nil(t, p.ApplyCompletePhase(0, actor, time.Now()))
	require.Nil(t, p.ApplyPhasePayment(0, testProof(p.Phases[0].Amount), time.Now()))
	assert.True(t, p.Phases[0].PaymentApproved)

	err = p.ApplyPhasePayment(0, testProof(p.Phases[0].Amount), time.Now())
	require.NotNil(t, err, "phase cannot be paid twice")
	assert.Equal(t, CodeState, err.Code)
}

func TestPhaseIndexValidation(t *testing.T) {
	p := testProposal(1000000)
	actor := Actor{ID: primitive.NewObjectID(), Role: RoleDev}
	acceptAndPayDeposit(t, p)

	for _, index := range []int{-1, 1, 5} {
		err := p.ApplyCompletePhase(index, actor, time.Now())
		require.NotNil(t, err)
		assert.Equal(t, CodeValidation, err.Code)

		err = p.ApplyPhasePayment(index, testProof(0), time.Now())
		require.NotNil(t, err)
		assert.Equal(t, CodeValidation, err.Code)
	}
}

func TestAllPhasesPaid(t *testing.T) {
	t.Run("no phases is never all-paid", func(t *testing.T) {
		p := testProposal()
		acceptAndPayDeposit(t, p)
		assert.False(t, p.AllPhasesPaid())
	})

	t.Run("all phases paid in order", func(t *testing.T) {
		p := testProposal(1000000, 2000000)
		actor := Actor{ID: primitive.NewObjectID(), Role: RoleDev}
		acceptAndPayDeposit(t, p)

		require.Nil(t, p.ApplyCompletePhase(0, actor, time.Now()))
		require.Nil(t, p.ApplyPhasePayment(0, testProof(p.Phases[0].Amount), time.Now()))
		assert.False(t, p.AllPhasesPaid())

		require.Nil(t, p.ApplyCompletePhase(1, actor, time.Now()))
		require.Nil(t, p.ApplyPhasePayment(1, testProof(p.Phases[1].Amount), time.Now()))
		assert.True(t, p.AllPhasesPaid())
	})
}
