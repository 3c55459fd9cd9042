package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lachong-dev/agiletech_backend/models"
)

func TestAutoApproveDeposit(t *testing.T) {
	verifier := &AutoApproveVerifier{}
	actor := models.Actor{ID: primitive.NewObjectID(), FullName: "Nguyen Van A", Role: models.RoleCustomer}
	proposal := &models.Proposal{
		ID:            primitive.NewObjectID(),
		DepositAmount: models.MinDepositAmount,
	}

	proof, err := verifier.VerifyDeposit(context.Background(), proposal, actor)
	require.NoError(t, err)

	assert.True(t, proof.AutoApproved)
	assert.Equal(t, "completed", proof.Status)
	assert.Equal(t, proposal.DepositAmount, proof.Amount)
	assert.Equal(t, actor.ID, proof.SubmittedBy)
	assert.Equal(t, actor.ID, proof.ApprovedBy)
	assert.Equal(t, "Nguyen Van A", proof.ApprovedByName)
	assert.NotEmpty(t, proof.Reference)
	assert.False(t, proof.ApprovedAt.IsZero())
}

func TestAutoApprovePhase(t *testing.T) {
	verifier := &AutoApproveVerifier{}
	actor := models.Actor{ID: primitive.NewObjectID(), Role: models.RoleCustomer}
	proposal := &models.Proposal{
		ID: primitive.NewObjectID(),
		Phases: []models.Phase{
			{Name: "Design", Amount: 1500000},
			{Name: "Build", Amount: 4500000},
		},
	}

	proof, err := verifier.VerifyPhase(context.Background(), proposal, 1, actor)
	require.NoError(t, err)

	assert.True(t, proof.AutoApproved)
	assert.Equal(t, int64(4500000), proof.Amount)
	assert.Equal(t, "Build", proof.PhaseName)

	// References are unique per verification
	other, err := verifier.VerifyPhase(context.Background(), proposal, 0, actor)
	require.NoError(t, err)
	assert.NotEqual(t, proof.Reference, other.Reference)
}
