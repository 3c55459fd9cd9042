package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func projectIn(status ProjectStatus) *Project {
	return &Project{Status: status}
}

func TestProposalAcceptedEdge(t *testing.T) {
	for _, from := range []ProjectStatus{ProjectNegotiation, ProjectPending} {
		p := projectIn(from)
		require.Nil(t, p.ApplyProposalAccepted())
		assert.Equal(t, ProjectDeposit, p.Status)
	}

	for _, from := range []ProjectStatus{ProjectDeposit, ProjectInProgress, ProjectCompleted, ProjectCancelled} {
		p := projectIn(from)
		err := p.ApplyProposalAccepted()
		require.NotNil(t, err, "must not accept from %s", from)
		assert.Equal(t, CodeState, err.Code)
		assert.Equal(t, from, p.Status, "failed transition must not move the project")
	}
}

func TestDepositConfirmedEdge(t *testing.T) {
	p := projectIn(ProjectDeposit)
	require.Nil(t, p.ApplyDepositConfirmed(time.Now()))
	assert.Equal(t, ProjectInProgress, p.Status)
	assert.NotNil(t, p.StartDate)

	err := p.ApplyDepositConfirmed(time.Now())
	require.NotNil(t, err)
	assert.Equal(t, CodeState, err.Code)
}

func TestAllPhasesPaidEdge(t *testing.T) {
	p := projectIn(ProjectInProgress)
	require.Nil(t, p.ApplyAllPhasesPaid(time.Now()))
	assert.Equal(t, ProjectCompleted, p.Status)
	assert.NotNil(t, p.EndDate)

	require.NotNil(t, projectIn(ProjectDeposit).ApplyAllPhasesPaid(time.Now()))
	require.NotNil(t, projectIn(ProjectOnHold).ApplyAllPhasesPaid(time.Now()))
}

func TestAcceptanceEdges(t *testing.T) {
	openStatuses := []ProjectStatus{ProjectCompleted, ProjectPendingAcceptance, ProjectRevisionRequired}

	for _, from := range openStatuses {
		assert.True(t, projectIn(from).AcceptanceOpen(), "%s must accept submissions", from)

		p := projectIn(from)
		require.Nil(t, p.ApplyAcceptanceAccepted(time.Now()))
		assert.Equal(t, ProjectCompleted, p.Status)

		p = projectIn(from)
		require.Nil(t, p.ApplyAcceptanceRejected())
		assert.Equal(t, ProjectRevisionRequired, p.Status)
	}

	for _, from := range []ProjectStatus{ProjectNegotiation, ProjectDeposit, ProjectInProgress, ProjectCancelled} {
		assert.False(t, projectIn(from).AcceptanceOpen())
		require.NotNil(t, projectIn(from).ApplyAcceptanceAccepted(time.Now()))
		require.NotNil(t, projectIn(from).ApplyAcceptanceRejected())
	}
}

func TestRevisionLoop(t *testing.T) {
	// Reject, revise, hand back, accept
	p := projectIn(ProjectCompleted)
	require.Nil(t, p.ApplyAcceptanceRejected())
	assert.Equal(t, ProjectRevisionRequired, p.Status)

	require.Nil(t, p.ApplyRevisionCompleted())
	assert.Equal(t, ProjectPendingAcceptance, p.Status)

	// A second rejection restarts the loop
	require.Nil(t, p.ApplyAcceptanceRejected())
	require.Nil(t, p.ApplyRevisionCompleted())

	require.Nil(t, p.ApplyAcceptanceAccepted(time.Now()))
	assert.Equal(t, ProjectCompleted, p.Status)

	// Revision completion only applies while in revision
	err := projectIn(ProjectInProgress).ApplyRevisionCompleted()
	require.NotNil(t, err)
	assert.Equal(t, CodeState, err.Code)
}

func TestHoldResume(t *testing.T) {
	p := projectIn(ProjectInProgress)
	require.Nil(t, p.ApplyHold())
	assert.Equal(t, ProjectOnHold, p.Status)

	require.NotNil(t, p.ApplyHold())

	require.Nil(t, p.ApplyResume())
	assert.Equal(t, ProjectInProgress, p.Status)

	require.NotNil(t, projectIn(ProjectNegotiation).ApplyHold())
	require.NotNil(t, projectIn(ProjectInProgress).ApplyResume())
}

func TestCancel(t *testing.T) {
	for _, from := range []ProjectStatus{ProjectNegotiation, ProjectDeposit, ProjectInProgress, ProjectOnHold, ProjectRevisionRequired} {
		p := projectIn(from)
		require.Nil(t, p.ApplyCancel(), "cancel from %s", from)
		assert.Equal(t, ProjectCancelled, p.Status)
	}

	require.NotNil(t, projectIn(ProjectCompleted).ApplyCancel())
	require.NotNil(t, projectIn(ProjectCancelled).ApplyCancel())
}
