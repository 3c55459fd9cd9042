package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestValidTransactionType(t *testing.T) {
	for _, typ := range []string{"deposit", "phase", "refund", "adjustment"} {
		assert.True(t, ValidTransactionType(typ))
	}
	assert.False(t, ValidTransactionType("payout"))
	assert.False(t, ValidTransactionType(""))
}

func TestNewDepositTransaction(t *testing.T) {
	projectID := primitive.NewObjectID()
	proposalID := primitive.NewObjectID()
	customerID := primitive.NewObjectID()
	actor := Actor{ID: customerID, Role: RoleCustomer}
	now := time.Now()

	tx := NewDepositTransaction(projectID, proposalID, customerID, 500000, actor, now)

	assert.Equal(t, TransactionDeposit, tx.Type)
	assert.Equal(t, TransactionCompleted, tx.Status)
	assert.Equal(t, int64(500000), tx.Amount)
	assert.Equal(t, "bank_transfer", tx.Method)
	assert.NotEmpty(t, tx.Reference)
	assert.Equal(t, "true", tx.Metadata["auto_approved"])
	require.NotNil(t, tx.ProposalID)
	assert.Equal(t, proposalID, *tx.ProposalID)
	require.NotNil(t, tx.CompletedAt)
}

func TestNewPhaseTransaction(t *testing.T) {
	phase := Phase{Name: "Backend API", Amount: 2000000}
	actor := Actor{ID: primitive.NewObjectID(), Role: RoleCustomer}

	tx := NewPhaseTransaction(primitive.NewObjectID(), primitive.NewObjectID(), actor.ID, 2, phase, actor, time.Now())

	assert.Equal(t, TransactionPhase, tx.Type)
	assert.Equal(t, phase.Amount, tx.Amount)
	assert.Equal(t, "Backend API", tx.PhaseName)
	require.NotNil(t, tx.PhaseIndex)
	assert.Equal(t, 2, *tx.PhaseIndex)

	// References must differ between entries
	other := NewPhaseTransaction(primitive.NewObjectID(), primitive.NewObjectID(), actor.ID, 0, phase, actor, time.Now())
	assert.NotEqual(t, tx.Reference, other.Reference)
}

func TestCanResolve(t *testing.T) {
	tx := Transaction{Status: TransactionPending}
	assert.Nil(t, tx.CanResolve())

	for _, status := range []TransactionStatus{TransactionCompleted, TransactionFailed, TransactionCancelled} {
		tx := Transaction{Status: status}
		err := tx.CanResolve()
		require.NotNil(t, err)
		assert.Equal(t, CodeState, err.Code)
	}
}
