package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// These tests walk the full flow the way the handlers drive it, with the
// proposal, project and feedback records moving together.

func TestHappyPathToCompletion(t *testing.T) {
	now := time.Now()
	dev := Actor{ID: primitive.NewObjectID(), Role: RoleDev}

	project := projectIn(ProjectNegotiation)
	proposal := testProposal(3000000, 2000000, 5000000)
	proposal.ProjectID = primitive.NewObjectID()

	// Sales sends, customer accepts
	require.Nil(t, proposal.ApplySend())
	assert.True(t, proposal.MarkViewed())
	require.Nil(t, proposal.ApplyAccept("please start soon", now))
	require.Nil(t, project.ApplyProposalAccepted())
	assert.Equal(t, ProjectDeposit, project.Status)

	// Deposit clears, project starts
	require.Nil(t, proposal.ApplyDepositPayment(testProof(proposal.DepositAmount), now))
	require.Nil(t, project.ApplyDepositConfirmed(now))
	assert.Equal(t, ProjectInProgress, project.Status)

	// Each phase: deliver then pay, strictly in order
	for i := range proposal.Phases {
		require.Nil(t, proposal.ApplyCompletePhase(i, dev, now))
		require.Nil(t, proposal.ApplyPhasePayment(i, testProof(proposal.Phases[i].Amount), now))
	}
	require.True(t, proposal.AllPhasesPaid())
	require.Nil(t, project.ApplyAllPhasesPaid(now))
	assert.Equal(t, ProjectCompleted, project.Status)

	// Customer signs off
	sub := AcceptanceSubmission{AcceptanceStatus: "accepted", Rating: intPtr(5)}
	require.Nil(t, sub.Validate())
	require.True(t, project.AcceptanceOpen())
	require.Nil(t, project.ApplyAcceptanceAccepted(now))
	assert.Equal(t, ProjectCompleted, project.Status)
}

func TestRejectionAndRevisionCycle(t *testing.T) {
	now := time.Now()
	dev := Actor{ID: primitive.NewObjectID(), Role: RoleDev}
	customer := Actor{ID: primitive.NewObjectID(), Role: RoleCustomer}

	project := &Project{Status: ProjectCompleted, CustomerID: customer.ID}
	feedback := ProjectFeedback{ProjectID: primitive.NewObjectID(), CustomerID: customer.ID}

	// Customer rejects delivery
	sub := AcceptanceSubmission{AcceptanceStatus: "rejected", RevisionDetails: "export is missing columns"}
	require.Nil(t, sub.Validate())
	feedback.Apply(sub, now)
	require.Nil(t, project.ApplyAcceptanceRejected())
	assert.Equal(t, ProjectRevisionRequired, project.Status)

	// Team fixes and hands back
	require.Nil(t, feedback.ApplyRevisionCompleted("columns added", dev, now))
	require.Nil(t, project.ApplyRevisionCompleted())
	assert.Equal(t, ProjectPendingAcceptance, project.Status)

	// Customer rejects again, the loop repeats
	feedback.Apply(AcceptanceSubmission{AcceptanceStatus: "rejected", Complaint: "still broken"}, now)
	feedback.RevisionCompleted = false
	require.Nil(t, project.ApplyAcceptanceRejected())
	require.Nil(t, feedback.ApplyRevisionCompleted("rebuilt the export", dev, now))
	require.Nil(t, project.ApplyRevisionCompleted())

	// Finally accepted
	feedback.Apply(AcceptanceSubmission{AcceptanceStatus: "accepted", Rating: intPtr(3)}, now)
	require.Nil(t, project.ApplyAcceptanceAccepted(now))
	assert.Equal(t, ProjectCompleted, project.Status)
}

func TestNegotiationBounce(t *testing.T) {
	now := time.Now()

	project := projectIn(ProjectNegotiation)
	proposal := testProposal(4000000)
	require.Nil(t, proposal.ApplySend())

	// Customer pushes back; the project stays in negotiation
	require.Nil(t, proposal.ApplyReject("budget too high", "", now))
	assert.Equal(t, ProposalNegotiating, proposal.Status)
	assert.Equal(t, ProjectNegotiation, project.Status)

	// Sales revises the numbers and the customer accepts
	require.Nil(t, proposal.EditableByStaff())
	proposal.Phases[0].Amount = 3000000
	proposal.RecalculateTotals()
	require.Nil(t, proposal.ApplyAccept("deal", now))
	require.Nil(t, project.ApplyProposalAccepted())
	assert.Equal(t, ProjectDeposit, project.Status)
}

func TestPaymentBeforeDeliveryIsBlocked(t *testing.T) {
	proposal := testProposal(1000000, 2000000)
	acceptAndPayDeposit(t, proposal)

	// Customer cannot pay for work that has not been delivered
	err := proposal.ApplyPhasePayment(0, testProof(1000000), time.Now())
	require.NotNil(t, err)
	assert.Equal(t, CodeState, err.Code)

	// And cannot skip ahead to a later phase
	err = proposal.ApplyPhasePayment(1, testProof(2000000), time.Now())
	require.NotNil(t, err)
}
